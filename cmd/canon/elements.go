package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

func newElementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "elements",
		Short: "Manage narrative elements",
	}

	cmd.AddCommand(
		newElementsListCmd(),
		newElementsSearchCmd(),
		newElementsShowCmd(),
		newElementsDeleteCmd(),
	)

	return cmd
}

func newElementsListCmd() *cobra.Command {
	var (
		kind   string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List elements",
		Long:  "Lists elements stored for the fandom with optional kind filtering.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runElementsList(cmd, kind, limit, offset)
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Filter by element kind (plot_block, condition, tag)")
	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultListLimit, "Maximum number of elements to display")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of elements to skip")

	return cmd
}

func runElementsList(cmd *cobra.Command, kind string, limit, offset int) error {
	ctx := cmd.Context()

	elementKind, err := parseKind(kind)
	if err != nil {
		return err
	}

	return withDeps(func(d *Deps) error {
		result, err := d.ElementHandler.HandleList(ctx, d.FandomID, elementKind, limit, offset)
		if err != nil {
			return fmt.Errorf("listing elements: %w", err)
		}

		if len(result.Elements) == 0 {
			fmt.Println("No elements found.")
			return nil
		}

		fmt.Printf("Showing %d of %d elements:\n\n", len(result.Elements), result.Total)
		for _, el := range result.Elements {
			displayElement(el)
		}
		return nil
	})
}

func newElementsSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search elements by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runElementsSearch(cmd, args[0], limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultListLimit, "Maximum number of elements to display")

	return cmd
}

func runElementsSearch(cmd *cobra.Command, query string, limit int) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		result, err := d.ElementHandler.HandleSearch(ctx, d.FandomID, query, limit)
		if err != nil {
			return fmt.Errorf("searching elements: %w", err)
		}

		if len(result.Elements) == 0 {
			fmt.Printf("No elements match %q.\n", query)
			return nil
		}

		fmt.Printf("Found %d elements:\n\n", len(result.Elements))
		for _, el := range result.Elements {
			displayElement(el)
		}
		return nil
	})
}

func newElementsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID-OR-NAME",
		Short: "Show one element in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runElementsShow,
	}
}

func runElementsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		el, err := d.ElementHandler.HandleShow(ctx, d.FandomID, args[0])
		if err != nil {
			return fmt.Errorf("finding element: %w", err)
		}
		if el == nil {
			return fmt.Errorf("element not found: %s", args[0])
		}

		displayElementDetail(el)
		return nil
	})
}

func newElementsDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an element",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runElementsDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runElementsDelete(cmd *cobra.Command, elementID string, force bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		if !force && !confirmAction(fmt.Sprintf("Delete element %s?", elementID)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := d.ElementHandler.HandleDelete(ctx, elementID); err != nil {
			return fmt.Errorf("deleting element: %w", err)
		}
		fmt.Printf("Deleted element: %s\n", elementID)
		return nil
	})
}

func displayElement(el *entities.Element) {
	fmt.Printf("ID: %s\n", el.ID)
	fmt.Printf("  [%s] %s\n", el.Kind, el.Name)
	if el.Category != "" {
		fmt.Printf("  Category: %s\n", el.Category)
	}
	if el.Description != "" {
		fmt.Printf("  %s\n", el.Description)
	}
	fmt.Println()
}

func displayElementDetail(el *entities.Element) {
	displayElement(el)

	if len(el.Requires) > 0 {
		fmt.Printf("  Requires: %s\n", strings.Join(el.Requires, ", "))
	}
	if len(el.Enhances) > 0 {
		fmt.Printf("  Enhances: %s\n", strings.Join(el.Enhances, ", "))
	}
	if len(el.ConflictsWith) > 0 {
		fmt.Printf("  Conflicts with: %s\n", strings.Join(el.ConflictsWith, ", "))
	}
	if len(el.ExcludesCategories) > 0 {
		fmt.Printf("  Excludes categories: %s\n", strings.Join(el.ExcludesCategories, ", "))
	}
	if el.MaxInstances != nil {
		fmt.Printf("  Max instances: %d\n", *el.MaxInstances)
	}
	if el.ParentID != "" {
		fmt.Printf("  Parent: %s\n", el.ParentID)
	}
	if len(el.Children) > 0 {
		fmt.Printf("  Children: %s\n", strings.Join(el.Children, ", "))
	}
}

// parseKind validates an optional --kind flag value. An empty value
// means no filtering.
func parseKind(kind string) (entities.ElementKind, error) {
	if kind == "" {
		return "", nil
	}
	k := entities.ElementKind(kind)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid kind %q, valid kinds: %v", kind, validKinds)
	}
	return k, nil
}

func confirmAction(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("%s [y/N]: ", prompt)
	response, _ := reader.ReadString('\n') // Error ignored: EOF/error treated as "no"
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
