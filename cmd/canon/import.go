package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/domain/services"
)

type importFlags struct {
	format     string
	dryRun     bool
	onConflict string
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import elements or rules from file",
	}

	cmd.AddCommand(
		newImportElementsCmd(),
		newImportRulesCmd(),
	)

	return cmd
}

func newImportElementsCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "elements FILE",
		Short: "Import elements from a JSON or CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportElements(cmd, args[0], flags)
		},
	}

	addImportFlags(cmd, &flags)

	return cmd
}

func runImportElements(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()

	opts, err := importOptions(flags)
	if err != nil {
		return err
	}

	return withDeps(func(d *Deps) error {
		result, err := d.ImportHandler.HandleElements(ctx, filePath, opts)
		if err != nil {
			return fmt.Errorf("importing elements: %w", err)
		}

		displayImportResult("elements", result, flags.dryRun)
		return nil
	})
}

func newImportRulesCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "rules FILE",
		Short: "Import validation rules from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportRules(cmd, args[0], flags)
		},
	}

	addImportFlags(cmd, &flags)

	return cmd
}

func runImportRules(cmd *cobra.Command, filePath string, flags importFlags) error {
	ctx := cmd.Context()

	opts, err := importOptions(flags)
	if err != nil {
		return err
	}

	return withDeps(func(d *Deps) error {
		result, err := d.ImportHandler.HandleRules(ctx, filePath, opts)
		if err != nil {
			return fmt.Errorf("importing rules: %w", err)
		}

		displayImportResult("rules", result, flags.dryRun)
		return nil
	})
}

func addImportFlags(cmd *cobra.Command, flags *importFlags) {
	cmd.Flags().StringVar(&flags.format, "format", "", "Input format (json, csv); inferred from the file extension when unset")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate the file without persisting anything")
	cmd.Flags().StringVar(&flags.onConflict, "on-conflict", "skip", "How to handle existing records (skip, overwrite)")
}

func importOptions(flags importFlags) (handlers.ImportOptions, error) {
	strategy := services.ConflictStrategy(flags.onConflict)
	switch strategy {
	case services.ConflictSkip, services.ConflictOverwrite:
	default:
		return handlers.ImportOptions{}, fmt.Errorf("invalid --on-conflict value %q, valid values: skip, overwrite", flags.onConflict)
	}

	return handlers.ImportOptions{
		Format:     flags.format,
		DryRun:     flags.dryRun,
		OnConflict: strategy,
	}, nil
}

func displayImportResult(what string, result *handlers.ImportResult, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Validated"
	}

	fmt.Printf("%s %d %s", verb, result.Imported, what)
	if result.Skipped > 0 {
		fmt.Printf(" (%d skipped)", result.Skipped)
	}
	fmt.Println()

	if len(result.Errors) > 0 {
		fmt.Printf("\n%d records rejected:\n", len(result.Errors))
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Printf("  line %d: %s\n", e.Line, e.Message)
			} else {
				fmt.Printf("  %s\n", e.Message)
			}
		}
	}
}
