package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage element categories",
		RunE:  runCategoriesList,
	}

	cmd.AddCommand(
		newCategoriesListCmd(),
		newCategoriesAddCmd(),
		newCategoriesRemoveCmd(),
		newCategoriesShowCmd(),
	)

	return cmd
}

func newCategoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE:  runCategoriesList,
	}
}

func runCategoriesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		categories, err := d.CategoryHandler.HandleList(ctx)
		if err != nil {
			return fmt.Errorf("listing categories: %w", err)
		}

		if len(categories) == 0 {
			fmt.Println("No categories defined.")
			return nil
		}

		fmt.Printf("%-20s %s\n", "NAME", "DESCRIPTION")
		fmt.Printf("%-20s %s\n", "----", "-----------")
		for _, cat := range categories {
			fmt.Printf("%-20s %s\n", cat.Name, cat.Description)
		}
		return nil
	})
}

func newCategoriesAddCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategoriesAdd(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Category description")

	return cmd
}

func runCategoriesAdd(cmd *cobra.Command, name, description string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		if err := d.CategoryHandler.HandleAdd(ctx, name, description); err != nil {
			return fmt.Errorf("adding category: %w", err)
		}
		fmt.Printf("Added category %q\n", name)
		return nil
	})
}

func newCategoriesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a custom category",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesRemove,
	}
}

func runCategoriesRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		if err := d.CategoryHandler.HandleRemove(ctx, args[0]); err != nil {
			return fmt.Errorf("removing category: %w", err)
		}
		fmt.Printf("Removed category %q\n", args[0])
		return nil
	})
}

func newCategoriesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one category",
		Args:  cobra.ExactArgs(1),
		RunE:  runCategoriesShow,
	}
}

func runCategoriesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		cat, err := d.CategoryHandler.HandleDescribe(ctx, args[0])
		if err != nil {
			return fmt.Errorf("finding category: %w", err)
		}
		if cat == nil {
			return fmt.Errorf("category not found: %s", args[0])
		}

		fmt.Printf("Name: %s\n", cat.Name)
		if cat.Description != "" {
			fmt.Printf("Description: %s\n", cat.Description)
		}
		return nil
	})
}
