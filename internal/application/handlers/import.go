package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/ersonp/canon-core/internal/domain/services"
	"github.com/ersonp/canon-core/internal/infrastructure/parsers"
)

// ImportHandler handles importing elements and rules from files.
type ImportHandler struct {
	service     *services.ImportService
	ruleService *services.RuleService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService, ruleService *services.RuleService) *ImportHandler {
	return &ImportHandler{
		service:     service,
		ruleService: ruleService,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string                    // "json", "csv", or "auto"
	DryRun     bool                      // Validate without saving
	OnConflict services.ConflictStrategy // How to handle existing records
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []services.ImportError
}

// HandleElements imports elements from a JSON or CSV file.
func (h *ImportHandler) HandleElements(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	rawElements, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if len(rawElements) == 0 {
		return &ImportResult{}, nil
	}

	serviceOpts := services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: opts.OnConflict,
	}

	serviceResult, err := h.service.ImportElements(ctx, rawElements, serviceOpts)
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Imported: serviceResult.Imported,
		Skipped:  serviceResult.Skipped,
		Errors:   serviceResult.Errors,
	}, nil
}

// HandleRules imports validation rules from a JSON file. Rules go
// through the rule service so imports get the same versioning and audit
// treatment as hand-edited rules.
func (h *ImportHandler) HandleRules(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	rawRules, err := parsers.ParseRules(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if len(rawRules) == 0 {
		return &ImportResult{}, nil
	}

	serviceOpts := services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: opts.OnConflict,
	}

	serviceResult, err := h.service.ImportRules(ctx, rawRules, h.ruleService, serviceOpts)
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Imported: serviceResult.Imported,
		Skipped:  serviceResult.Skipped,
		Errors:   serviceResult.Errors,
	}, nil
}
