package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
)

type suggestFlags struct {
	kind         string
	alternatives string
	limit        int
}

func newSuggestCmd() *cobra.Command {
	var flags suggestFlags

	cmd := &cobra.Command{
		Use:   "suggest [text...]",
		Short: "Suggest similar or alternative elements",
		Long:  "Finds elements by embedding similarity, or alternatives to a conflicting element.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(cmd, strings.Join(args, " "), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.kind, "kind", "k", "", "Restrict suggestions to one element kind")
	cmd.Flags().StringVarP(&flags.alternatives, "alternatives", "a", "", "Suggest alternatives to this element id instead of free-text search")
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", DefaultSuggestLimit, "Maximum number of suggestions")

	return cmd
}

func runSuggest(cmd *cobra.Command, text string, flags suggestFlags) error {
	ctx := cmd.Context()

	if flags.alternatives == "" && text == "" {
		return fmt.Errorf("provide search text or --alternatives ID")
	}

	kind, err := parseKind(flags.kind)
	if err != nil {
		return err
	}

	return withDeps(func(d *Deps) error {
		var result *handlers.SuggestResult

		if flags.alternatives != "" {
			result, err = d.SuggestHandler.HandleAlternatives(ctx, flags.alternatives, flags.limit)
		} else {
			result, err = d.SuggestHandler.HandleSimilar(ctx, text, kind, flags.limit)
		}
		if err != nil {
			return fmt.Errorf("finding suggestions: %w", err)
		}

		if len(result.Elements) == 0 {
			fmt.Println("No suggestions found.")
			return nil
		}

		fmt.Printf("Suggestions for %q:\n\n", result.Query)
		for i, el := range result.Elements {
			fmt.Printf("  %d. [%s] %s", i+1, el.Kind, el.Name)
			if el.Category != "" {
				fmt.Printf(" (%s)", el.Category)
			}
			fmt.Println()
			if el.Description != "" {
				fmt.Printf("     %s\n", el.Description)
			}
		}
		return nil
	})
}
