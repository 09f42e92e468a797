package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/infrastructure/config"
	embedder "github.com/ersonp/canon-core/internal/infrastructure/embedder/openai"
	"github.com/ersonp/canon-core/internal/infrastructure/vectordb/qdrant"
)

// fandomManager handles qdrant collection operations for fandoms.
type fandomManager struct {
	cfg *config.Config
}

func newFandomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fandoms",
		Short: "Manage fandoms",
		RunE:  runFandomsList,
	}

	cmd.AddCommand(
		newFandomsListCmd(),
		newFandomsCreateCmd(),
		newFandomsDeleteCmd(),
	)

	return cmd
}

func newFandomsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all fandoms",
		RunE:  runFandomsList,
	}
}

func runFandomsList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	fandoms, err := config.LoadFandoms(cwd)
	if err != nil {
		return fmt.Errorf("loading fandoms: %w", err)
	}

	if len(fandoms.Fandoms) == 0 {
		fmt.Println("No fandoms configured.")
		fmt.Println("Use 'canon fandoms create NAME' to create a fandom.")
		return nil
	}

	fmt.Printf("%-25s %-30s %s\n", "NAME", "COLLECTION", "DESCRIPTION")
	fmt.Printf("%-25s %-30s %s\n", "----", "----------", "-----------")

	for name, entry := range fandoms.Fandoms {
		fmt.Printf("%-25s %-30s %s\n", name, entry.Collection, entry.Description)
	}

	return nil
}

func newFandomsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new fandom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFandomsCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Fandom description")

	return cmd
}

func runFandomsCreate(cmd *cobra.Command, name string, description string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	if !config.Exists(cwd) {
		return fmt.Errorf("canon is not initialized, run 'canon init %q' first", name)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fandoms, err := config.LoadFandoms(cwd)
	if err != nil {
		return fmt.Errorf("loading fandoms: %w", err)
	}

	if fandoms.Exists(name) {
		return fmt.Errorf("fandom %q already exists", name)
	}

	collection := config.GenerateCollectionName(name)
	fandoms.Add(name, config.FandomEntry{
		Collection:  collection,
		Description: description,
	})
	if err := fandoms.Save(cwd); err != nil {
		return fmt.Errorf("saving fandoms: %w", err)
	}

	mgr := &fandomManager{cfg: cfg}
	if err := mgr.createCollection(ctx, collection); err != nil {
		return fmt.Errorf("creating qdrant collection: %w", err)
	}

	fmt.Printf("Created fandom %q with collection %q\n", name, collection)

	return nil
}

func newFandomsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a fandom",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFandomsDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even if fandom contains elements")

	return cmd
}

func runFandomsDelete(cmd *cobra.Command, name string, force bool) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fandoms, err := config.LoadFandoms(cwd)
	if err != nil {
		return fmt.Errorf("loading fandoms: %w", err)
	}

	entry, err := fandoms.Get(name)
	if err != nil {
		return err
	}

	mgr := &fandomManager{cfg: cfg}

	if !force {
		count, err := mgr.getCollectionCount(ctx, entry.Collection)
		if err == nil && count > 0 {
			return fmt.Errorf("fandom %q contains %d elements, use --force to delete", name, count)
		}
	}

	if err := mgr.deleteCollection(ctx, entry.Collection); err != nil {
		fmt.Printf("Warning: could not delete collection %q: %v\n", entry.Collection, err)
	}

	// Remove the fandom's SQLite database directory as well.
	if err := os.RemoveAll(config.FandomDir(cwd, name)); err != nil {
		fmt.Printf("Warning: could not remove fandom data directory: %v\n", err)
	}

	fandoms.Remove(name)
	if err := fandoms.Save(cwd); err != nil {
		return fmt.Errorf("saving fandoms: %w", err)
	}

	fmt.Printf("Deleted fandom %q\n", name)

	return nil
}

func (m *fandomManager) createCollection(ctx context.Context, collection string) error {
	qdrantCfg := m.cfg.Qdrant
	qdrantCfg.Collection = collection

	repo, err := qdrant.NewRepository(qdrantCfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	return repo.EnsureCollection(ctx, embedder.VectorSize)
}

func (m *fandomManager) getCollectionCount(ctx context.Context, collection string) (uint64, error) {
	qdrantCfg := m.cfg.Qdrant
	qdrantCfg.Collection = collection

	repo, err := qdrant.NewRepository(qdrantCfg)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	return repo.Count(ctx)
}

func (m *fandomManager) deleteCollection(ctx context.Context, collection string) error {
	qdrantCfg := m.cfg.Qdrant
	qdrantCfg.Collection = collection

	repo, err := qdrant.NewRepository(qdrantCfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	return repo.DeleteCollection(ctx)
}
