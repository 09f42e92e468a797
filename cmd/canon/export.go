package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/canon-core/internal/application/handlers"
	"github.com/ersonp/canon-core/internal/domain/entities"
)

type exportFlags struct {
	format string
	output string
	kind   string
	limit  int
}

type exporter struct {
	format string
	output string
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export elements to file",
		Long:  "Exports elements to JSON, CSV, or markdown format.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, csv, markdown)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&flags.kind, "kind", "k", "", "Filter by element kind")
	cmd.Flags().IntVarP(&flags.limit, "limit", "l", DefaultExportLimit, "Maximum number of elements to export")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

	kind, err := parseKind(flags.kind)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	return withDeps(func(d *Deps) error {
		e := &exporter{
			format: flags.format,
			output: flags.output,
		}

		elements, err := fetchElements(ctx, d.ElementHandler, d.FandomID, kind, flags.limit)
		if err != nil {
			return err
		}

		return e.export(elements)
	})
}

func fetchElements(ctx context.Context, handler *handlers.ElementHandler, fandomID string, kind entities.ElementKind, limit int) ([]*entities.Element, error) {
	result, err := handler.HandleList(ctx, fandomID, kind, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing elements: %w", err)
	}

	if len(result.Elements) == 0 {
		return nil, fmt.Errorf("no elements found to export")
	}

	return result.Elements, nil
}

func (e *exporter) export(elements []*entities.Element) (err error) {
	var w io.Writer
	var f *os.File

	if e.output != "" {
		f, err = os.OpenFile(e.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing file: %w", cerr)
			}
		}()
		w = f
	} else {
		w = os.Stdout
	}

	if err := e.formatElements(w, elements); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if e.output != "" {
		fmt.Printf("Exported %d elements to %s\n", len(elements), e.output)
	}

	return nil
}

func (e *exporter) formatElements(w io.Writer, elements []*entities.Element) error {
	switch e.format {
	case "json":
		return formatJSON(w, elements)
	case "csv":
		return formatCSV(w, elements)
	case "markdown":
		return formatMarkdown(w, elements)
	default:
		return fmt.Errorf("unknown format: %s", e.format)
	}
}

// exportElement mirrors the import format, so an export can round-trip
// through 'canon import elements'.
type exportElement struct {
	ID                 string   `json:"id"`
	Kind               string   `json:"kind"`
	Name               string   `json:"name"`
	Category           string   `json:"category,omitempty"`
	Description        string   `json:"description,omitempty"`
	Requires           []string `json:"requires,omitempty"`
	Enhances           []string `json:"enhances,omitempty"`
	ConflictsWith      []string `json:"conflicts_with,omitempty"`
	ExcludesCategories []string `json:"excludes_categories,omitempty"`
	MaxInstances       *int     `json:"max_instances,omitempty"`
	ParentID           string   `json:"parent_id,omitempty"`
}

func toExportElement(el *entities.Element) exportElement {
	return exportElement{
		ID:                 el.ID,
		Kind:               string(el.Kind),
		Name:               el.Name,
		Category:           el.Category,
		Description:        el.Description,
		Requires:           el.Requires,
		Enhances:           el.Enhances,
		ConflictsWith:      el.ConflictsWith,
		ExcludesCategories: el.ExcludesCategories,
		MaxInstances:       el.MaxInstances,
		ParentID:           el.ParentID,
	}
}

func formatJSON(w io.Writer, elements []*entities.Element) error {
	exportElements := make([]exportElement, 0, len(elements))
	for _, el := range elements {
		exportElements = append(exportElements, toExportElement(el))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportElements)
}

func formatCSV(w io.Writer, elements []*entities.Element) error {
	writer := csv.NewWriter(w)

	header := []string{"id", "kind", "name", "category", "description", "requires", "enhances", "conflicts_with", "excludes_categories", "max_instances", "parent_id"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, el := range elements {
		maxInstances := ""
		if el.MaxInstances != nil {
			maxInstances = fmt.Sprintf("%d", *el.MaxInstances)
		}
		row := []string{
			el.ID,
			string(el.Kind),
			el.Name,
			el.Category,
			el.Description,
			strings.Join(el.Requires, ";"),
			strings.Join(el.Enhances, ";"),
			strings.Join(el.ConflictsWith, ";"),
			strings.Join(el.ExcludesCategories, ";"),
			maxInstances,
			el.ParentID,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatMarkdown(w io.Writer, elements []*entities.Element) error {
	if _, err := fmt.Fprintf(w, "# Exported Elements\n\nTotal: %d elements\n\n", len(elements)); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "| Kind | Name | Category | Requires | Conflicts With |\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "|------|------|----------|----------|----------------|\n"); err != nil {
		return err
	}

	for _, el := range elements {
		if _, err := fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			el.Kind,
			escapeMarkdown(el.Name),
			escapeMarkdown(el.Category),
			escapeMarkdown(strings.Join(el.Requires, ", ")),
			escapeMarkdown(strings.Join(el.ConflictsWith, ", ")),
		); err != nil {
			return err
		}
	}

	return nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
