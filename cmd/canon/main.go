// Package main provides the entry point for the canon CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version      = "0.1.0-dev"
	globalFandom string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "canon",
		Short:   "A constraint validator for fandom narrative elements",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&globalFandom, "fandom", "", "Fandom to operate on (required by most commands)")

	rootCmd.AddCommand(
		newInitCmd(),
		newFandomsCmd(),
		newElementsCmd(),
		newCategoriesCmd(),
		newRulesCmd(),
		newTemplatesCmd(),
		newImportCmd(),
		newExportCmd(),
		newValidateCmd(),
		newSuggestCmd(),
		newWatchCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
