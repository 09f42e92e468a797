package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/domain/ports"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
	"github.com/ersonp/canon-core/internal/infrastructure/vectordb/qdrant"
)

func newInitCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "init FANDOM",
		Short: "Initialize a canon workspace",
		Long:  "Creates the .canon config directory and registers the first fandom.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Fandom description")

	return cmd
}

func runInit(cmd *cobra.Command, fandomName string, description string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	// Config does not exist yet, so collection creation runs against
	// default Qdrant settings.
	var manager ports.CollectionManager
	qdrantCfg := config.Default().Qdrant
	qdrantCfg.Collection = config.GenerateCollectionName(fandomName)
	repo, err := qdrant.NewRepository(qdrantCfg)
	if err == nil {
		defer repo.Close()
		manager = repo
	} else {
		fmt.Printf("Warning: could not connect to qdrant: %v\n", err)
	}

	handler := handlers.NewInitHandler(manager)
	result, err := handler.Handle(ctx, cwd, fandomName, description)
	if err != nil {
		return err
	}

	fmt.Printf("Initialized canon in %s\n", config.ConfigDir(cwd))
	fmt.Printf("Created fandom %q with collection %q\n", result.FandomName, result.CollectionName)
	fmt.Println("\nNext steps:")
	fmt.Printf("  canon --fandom %q import elements FILE\n", result.FandomName)
	fmt.Printf("  canon --fandom %q validate TAG...\n", result.FandomName)

	return nil
}
