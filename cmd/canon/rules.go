package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage validation rules",
	}

	cmd.AddCommand(
		newRulesListCmd(),
		newRulesShowCmd(),
		newRulesDeleteCmd(),
		newRulesHistoryCmd(),
		newRulesEnableCmd(),
		newRulesDisableCmd(),
	)

	return cmd
}

func newRulesListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List validation rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesList(cmd, all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include inactive rules")

	return cmd
}

func runRulesList(cmd *cobra.Command, all bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		rules, err := d.RuleHandler.HandleList(ctx, d.FandomID, !all)
		if err != nil {
			return fmt.Errorf("listing rules: %w", err)
		}

		if len(rules) == 0 {
			fmt.Println("No rules found.")
			return nil
		}

		fmt.Printf("%-30s %-8s %-8s %s\n", "ID", "PRIORITY", "ACTIVE", "NAME")
		fmt.Printf("%-30s %-8s %-8s %s\n", "--", "--------", "------", "----")
		for _, rule := range rules {
			active := "no"
			if rule.IsActive {
				active = "yes"
			}
			fmt.Printf("%-30s %-8d %-8s %s\n", rule.ID, rule.Priority, active, rule.Name)
		}
		return nil
	})
}

func newRulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one rule in detail",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesShow,
	}
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		rule, err := d.RuleHandler.HandleShow(ctx, args[0])
		if err != nil {
			return fmt.Errorf("finding rule: %w", err)
		}
		if rule == nil {
			return fmt.Errorf("rule not found: %s", args[0])
		}

		displayRule(rule)
		return nil
	})
}

func newRulesDeleteCmd() *cobra.Command {
	var (
		reason string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesDelete(cmd, args[0], reason, force)
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Reason recorded in the rule's history")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

func runRulesDelete(cmd *cobra.Command, ruleID, reason string, force bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		if !force && !confirmAction(fmt.Sprintf("Delete rule %s?", ruleID)) {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := d.RuleHandler.HandleDelete(ctx, ruleID, reason); err != nil {
			return fmt.Errorf("deleting rule: %w", err)
		}
		fmt.Printf("Deleted rule: %s\n", ruleID)
		return nil
	})
}

func newRulesHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history ID",
		Short: "Show a rule's version history",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesHistory,
	}
}

func runRulesHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		versions, err := d.RuleHandler.HandleHistory(ctx, args[0])
		if err != nil {
			return fmt.Errorf("loading rule history: %w", err)
		}

		if len(versions) == 0 {
			fmt.Printf("No history for rule: %s\n", args[0])
			return nil
		}

		fmt.Printf("History for rule %s (%d versions):\n\n", args[0], len(versions))
		for _, v := range versions {
			fmt.Printf("v%d  %s  %s\n", v.Version, v.CreatedAt.Format("2006-01-02 15:04:05"), v.ChangeType)
			if v.Reason != "" {
				fmt.Printf("    Reason: %s\n", v.Reason)
			}
		}
		return nil
	})
}

func newRulesEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable ID",
		Short: "Activate a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesSetActive(cmd, args[0], true)
		},
	}
}

func newRulesDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable ID",
		Short: "Deactivate a rule without deleting it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesSetActive(cmd, args[0], false)
		},
	}
}

func runRulesSetActive(cmd *cobra.Command, ruleID string, active bool) error {
	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		if err := d.RuleHandler.HandleSetActive(ctx, ruleID, active); err != nil {
			return err
		}
		if active {
			fmt.Printf("Enabled rule: %s\n", ruleID)
		} else {
			fmt.Printf("Disabled rule: %s\n", ruleID)
		}
		return nil
	})
}

func displayRule(rule *entities.ValidationRule) {
	fmt.Printf("ID: %s\n", rule.ID)
	fmt.Printf("Name: %s\n", rule.Name)
	fmt.Printf("Priority: %d\n", rule.Priority)
	fmt.Printf("Active: %v\n", rule.IsActive)
	if len(rule.DependsOn) > 0 {
		fmt.Printf("Depends on: %s\n", strings.Join(rule.DependsOn, ", "))
	}

	fmt.Printf("\nConditions (%d):\n", len(rule.Conditions))
	for i, c := range rule.Conditions {
		joiner := ""
		if i > 0 && c.Logical != "" {
			joiner = string(c.Logical) + " "
		}
		switch c.Type {
		case entities.ConditionTagCount:
			fmt.Printf("  %s%s %s %d\n", joiner, c.Type, c.Operator, c.Count)
		default:
			fmt.Printf("  %s%s %s\n", joiner, c.Type, c.Target)
		}
	}

	fmt.Printf("\nActions (%d):\n", len(rule.Actions))
	for _, a := range rule.Actions {
		switch a.Type {
		case entities.ActionAutoAdd, entities.ActionAutoRemove:
			fmt.Printf("  %s tags=%v plot_blocks=%v\n", a.Type, a.TargetTags, a.TargetPlotBlocks)
		default:
			fmt.Printf("  %s: %s\n", a.Type, a.Message)
		}
	}
}
