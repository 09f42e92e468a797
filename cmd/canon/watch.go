package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/observe"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Interactive mode with validation on every change",
		Long:  "Build a selection element by element and re-validate after each change.",
		RunE:  runWatch,
	}
}

// watchState accumulates a selection across REPL commands.
type watchState struct {
	deps      *Deps
	selection handlers.SelectionInput
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		metrics := observe.DefaultMetrics()
		metrics.ActiveWatchSessions.Add(ctx, 1)
		defer metrics.ActiveWatchSessions.Add(context.Background(), -1)

		state := &watchState{deps: d}
		return state.runInputLoop(ctx)
	})
}

func (s *watchState) runInputLoop(ctx context.Context) error {
	fmt.Printf("Canon interactive mode (fandom %q). The selection is re-validated after every change.\n", s.deps.FandomID)
	fmt.Println("Commands: 'add KIND NAME', 'remove KIND NAME', 'check', 'list', 'clear', 'quit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if s.handleCommand(ctx, line) {
			return nil
		}
	}

	return scanner.Err()
}

// handleCommand processes one REPL line. Returns true when the session
// should end.
func (s *watchState) handleCommand(ctx context.Context, line string) bool {
	verb, rest, _ := strings.Cut(line, " ")

	switch strings.ToLower(verb) {
	case "quit", "exit":
		fmt.Println("Goodbye!")
		return true
	case "help":
		s.showHelp()
	case "list":
		s.showSelection()
	case "clear":
		s.selection = handlers.SelectionInput{}
		fmt.Println("Selection cleared.")
	case "check":
		s.validate(ctx)
	case "add":
		if s.mutate(rest, addRef) {
			s.validate(ctx)
		}
	case "remove":
		if s.mutate(rest, removeRef) {
			s.validate(ctx)
		}
	default:
		fmt.Printf("Unknown command %q. Type 'help' for commands.\n", verb)
	}

	return false
}

// mutate applies op to the list named by the first word of rest.
// Returns true when the selection changed.
func (s *watchState) mutate(rest string, op func([]string, string) []string) bool {
	kind, name, _ := strings.Cut(strings.TrimSpace(rest), " ")
	name = strings.TrimSpace(name)
	if kind == "" || name == "" {
		fmt.Println("Usage: add|remove tag|block|condition NAME")
		return false
	}

	switch strings.ToLower(kind) {
	case "tag":
		s.selection.Tags = op(s.selection.Tags, name)
	case "block", "plot_block":
		s.selection.PlotBlocks = op(s.selection.PlotBlocks, name)
	case "condition":
		s.selection.Conditions = op(s.selection.Conditions, name)
	default:
		fmt.Printf("Unknown element kind %q. Use tag, block, or condition.\n", kind)
		return false
	}
	return true
}

func addRef(refs []string, name string) []string {
	for _, r := range refs {
		if strings.EqualFold(r, name) {
			return refs
		}
	}
	return append(refs, name)
}

func removeRef(refs []string, name string) []string {
	out := refs[:0]
	for _, r := range refs {
		if !strings.EqualFold(r, name) {
			out = append(out, r)
		}
	}
	return out
}

func (s *watchState) validate(ctx context.Context) {
	if s.empty() {
		fmt.Println("Selection is empty.")
		return
	}

	fmt.Println("\nChecking...")
	report, err := s.deps.ValidateHandler.Handle(ctx, s.deps.FandomID, s.selection)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	displayReport(report)
	fmt.Println()
}

func (s *watchState) empty() bool {
	return len(s.selection.Tags) == 0 && len(s.selection.PlotBlocks) == 0 && len(s.selection.Conditions) == 0
}

func (s *watchState) showSelection() {
	if s.empty() {
		fmt.Println("Selection is empty.")
		return
	}

	if len(s.selection.PlotBlocks) > 0 {
		fmt.Printf("Plot blocks: %s\n", strings.Join(s.selection.PlotBlocks, ", "))
	}
	if len(s.selection.Tags) > 0 {
		fmt.Printf("Tags: %s\n", strings.Join(s.selection.Tags, ", "))
	}
	if len(s.selection.Conditions) > 0 {
		fmt.Printf("Conditions: %s\n", strings.Join(s.selection.Conditions, ", "))
	}
}

func (s *watchState) showHelp() {
	fmt.Println("Commands:")
	fmt.Println("  add KIND NAME    - Add an element to the selection (kind: tag, block, condition)")
	fmt.Println("  remove KIND NAME - Remove an element from the selection")
	fmt.Println("  check            - Validate the current selection")
	fmt.Println("  list             - Show the current selection")
	fmt.Println("  clear            - Empty the selection")
	fmt.Println("  quit             - Exit interactive mode")
	fmt.Println()
	fmt.Println("The selection is validated automatically after every add or remove.")
}
