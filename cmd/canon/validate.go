package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/infrastructure/watcher"
	"github.com/ersonp/canon-core/internal/observe"
)

type validateFlags struct {
	tags       []string
	plotBlocks []string
	conditions []string
	file       string
	jsonOut    bool
	watch      bool
}

func newValidateCmd() *cobra.Command {
	var flags validateFlags

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a selection of narrative elements",
		Long: "Runs a selection through circular-reference detection, conflict detection,\n" +
			"and the rule engine. Elements are referenced by id or name.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, flags)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.tags, "tag", "t", nil, "Selected tag (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.plotBlocks, "plot-block", "p", nil, "Selected plot block (repeatable)")
	cmd.Flags().StringArrayVarP(&flags.conditions, "condition", "c", nil, "Selected condition (repeatable)")
	cmd.Flags().StringVar(&flags.file, "file", "", "Read the selection from a JSON file")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the full report as JSON")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Re-validate whenever the selection file changes (requires --file)")

	return cmd
}

func runValidate(cmd *cobra.Command, flags validateFlags) error {
	ctx := cmd.Context()

	if flags.watch && flags.file == "" {
		return fmt.Errorf("--watch requires --file")
	}
	if flags.file == "" && len(flags.tags) == 0 && len(flags.plotBlocks) == 0 && len(flags.conditions) == 0 {
		return fmt.Errorf("specify elements with --tag, --plot-block, --condition, or --file")
	}

	return withDeps(func(d *Deps) error {
		if flags.watch {
			return watchSelectionFile(ctx, d, flags)
		}

		var report *handlers.ValidationReport
		var err error

		if flags.file != "" {
			report, err = d.ValidateHandler.HandleFile(ctx, d.FandomID, flags.file)
		} else {
			report, err = d.ValidateHandler.Handle(ctx, d.FandomID, handlers.SelectionInput{
				Tags:       flags.tags,
				PlotBlocks: flags.plotBlocks,
				Conditions: flags.conditions,
			})
		}
		if err != nil {
			return err
		}

		if flags.jsonOut {
			return printReportJSON(report)
		}

		displayReport(report)
		if !report.Valid {
			return fmt.Errorf("selection failed validation")
		}
		return nil
	})
}

// watchSelectionFile re-validates the selection file on every change
// until the context is cancelled.
func watchSelectionFile(ctx context.Context, d *Deps, flags validateFlags) error {
	w, err := watcher.NewWatcher(flags.file)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	metrics := observe.DefaultMetrics()
	metrics.ActiveWatchSessions.Add(ctx, 1)
	defer metrics.ActiveWatchSessions.Add(context.Background(), -1)

	runOnce := func() {
		report, err := d.ValidateHandler.HandleFile(ctx, d.FandomID, flags.file)
		if err != nil {
			logger.Error("validation failed", "file", flags.file, "error", err)
			return
		}
		if flags.jsonOut {
			if err := printReportJSON(report); err != nil {
				logger.Error("encoding report", "error", err)
			}
			return
		}
		displayReport(report)
	}

	logger.Info("watching selection file", "file", flags.file, "fandom", d.FandomID)
	runOnce()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped")
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			switch change.Kind {
			case watcher.ChangeModified:
				logger.Info("selection changed", "file", change.File)
				runOnce()
			case watcher.ChangeRemoved:
				logger.Warn("selection file removed, waiting for it to reappear", "file", change.File)
			}
		}
	}
}

func printReportJSON(report *handlers.ValidationReport) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func displayReport(report *handlers.ValidationReport) {
	if report.Valid {
		fmt.Println("Selection is valid.")
	} else {
		fmt.Println("Selection is INVALID.")
	}

	if report.Cycles.HasCircularReferences {
		fmt.Printf("\nCircular references (%d):\n", len(report.Cycles.CircularChains))
		for _, chain := range report.Cycles.CircularChains {
			fmt.Printf("  [%s] %s\n", chain.Severity, chain.Message)
		}
	}

	if report.Conflicts.HasConflicts {
		fmt.Printf("\nConflicts (%d):\n", len(report.Conflicts.Conflicts))
		for _, conflict := range report.Conflicts.Conflicts {
			fmt.Printf("  [%s] %s\n", conflict.Severity, conflict.Message)
		}
		for _, suggestion := range report.Conflicts.Suggestions {
			fmt.Printf("  Suggested: %s (%s)\n", suggestion.Action, suggestion.Reason)
		}
	}

	if report.Rules != nil {
		for _, e := range report.Rules.Errors {
			fmt.Printf("\nError [%s]: %s\n", e.RuleID, e.Message)
		}
		for _, warn := range report.Rules.Warnings {
			fmt.Printf("Warning [%s]: %s\n", warn.RuleID, warn.Message)
		}
		for _, s := range report.Rules.Suggestions {
			fmt.Printf("Suggestion [%s]: %s\n", s.RuleID, s.Message)
		}
		fmt.Printf("\nEvaluated %d rules in %.1fms\n", len(report.Rules.AppliedRules), report.Rules.ExecutionTimeMS)
	}
}
