package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage rule templates",
	}

	cmd.AddCommand(
		newTemplatesListCmd(),
		newTemplatesShowCmd(),
		newTemplatesDeleteCmd(),
		newTemplatesExpandCmd(),
	)

	return cmd
}

func newTemplatesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rule templates",
		RunE:  runTemplatesList,
	}
}

func runTemplatesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		templates, err := d.TemplateHandler.HandleList(ctx, d.FandomID)
		if err != nil {
			return fmt.Errorf("listing templates: %w", err)
		}

		if len(templates) == 0 {
			fmt.Println("No templates found.")
			return nil
		}

		fmt.Printf("%-25s %-25s %s\n", "ID", "NAME", "PLACEHOLDERS")
		fmt.Printf("%-25s %-25s %s\n", "--", "----", "------------")
		for _, tpl := range templates {
			fmt.Printf("%-25s %-25s %s\n", tpl.ID, tpl.Name, strings.Join(tpl.Placeholders, ", "))
		}
		return nil
	})
}

func newTemplatesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one template in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runTemplatesShow,
	}
}

func runTemplatesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		tpl, err := d.TemplateHandler.HandleShow(ctx, args[0])
		if err != nil {
			return fmt.Errorf("finding template: %w", err)
		}
		if tpl == nil {
			return fmt.Errorf("template not found: %s", args[0])
		}

		fmt.Printf("ID: %s\n", tpl.ID)
		fmt.Printf("Name: %s\n", tpl.Name)
		if tpl.Description != "" {
			fmt.Printf("Description: %s\n", tpl.Description)
		}
		fmt.Printf("Placeholders: %s\n", strings.Join(tpl.Placeholders, ", "))
		fmt.Println("\nRule skeleton:")
		displayRule(&tpl.Rule)
		return nil
	})
}

func newTemplatesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplatesDelete(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runTemplatesDelete(cmd *cobra.Command, templateID string, force bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		if !force && !confirmAction(fmt.Sprintf("Delete template %s?", templateID)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := d.TemplateHandler.HandleDelete(ctx, templateID); err != nil {
			return fmt.Errorf("deleting template: %w", err)
		}
		fmt.Printf("Deleted template: %s\n", templateID)
		return nil
	})
}

func newTemplatesExpandCmd() *cobra.Command {
	var values []string

	cmd := &cobra.Command{
		Use:   "expand ID",
		Short: "Expand a template into a new rule",
		Long:  "Resolves the template's placeholders and saves the resulting rule.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplatesExpand(cmd, args[0], values)
		},
	}

	cmd.Flags().StringArrayVarP(&values, "set", "s", nil, "Placeholder value as key=value (repeatable)")

	return cmd
}

func runTemplatesExpand(cmd *cobra.Command, templateID string, values []string) error {
	ctx := cmd.Context()

	parsed, err := parseSetFlags(values)
	if err != nil {
		return err
	}

	return withDeps(func(d *Deps) error {
		rule, err := d.TemplateHandler.HandleExpand(ctx, templateID, parsed)
		if err != nil {
			return fmt.Errorf("expanding template: %w", err)
		}

		fmt.Printf("Created rule %s from template %s:\n\n", rule.ID, templateID)
		displayRule(rule)
		return nil
	})
}

func parseSetFlags(values []string) (map[string]string, error) {
	parsed := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q, expected key=value", v)
		}
		parsed[key] = value
	}
	return parsed, nil
}
