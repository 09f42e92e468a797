package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// listSeparator splits multi-valued CSV cells (requires, enhances, ...).
const listSeparator = ";"

// CSVParser parses elements from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed elements.
// Expected columns: name, kind, category, description, requires,
// enhances, conflicts_with, excludes_categories, max_instances,
// parent_id, id. Multi-valued columns use semicolon-separated ids.
func (p *CSVParser) Parse(r io.Reader) ([]RawElement, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[col] = i
	}

	requiredCols := []string{"name", "kind"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawElements.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawElement, error) {
	var elements []RawElement
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		element, err := p.parseRecord(record, colIndex, lineNum)
		if err != nil {
			return nil, err
		}
		elements = append(elements, element)
	}

	return elements, nil
}

// parseRecord converts a CSV record to a RawElement.
func (p *CSVParser) parseRecord(record []string, colIndex map[string]int, lineNum int) (RawElement, error) {
	element := RawElement{
		ID:                 getColumn(record, colIndex, "id"),
		Name:               getColumn(record, colIndex, "name"),
		Kind:               getColumn(record, colIndex, "kind"),
		Category:           getColumn(record, colIndex, "category"),
		Description:        getColumn(record, colIndex, "description"),
		Requires:           splitList(getColumn(record, colIndex, "requires")),
		Enhances:           splitList(getColumn(record, colIndex, "enhances")),
		ConflictsWith:      splitList(getColumn(record, colIndex, "conflicts_with")),
		ExcludesCategories: splitList(getColumn(record, colIndex, "excludes_categories")),
		ParentID:           getColumn(record, colIndex, "parent_id"),
		LineNum:            lineNum,
	}

	maxStr := getColumn(record, colIndex, "max_instances")
	if maxStr != "" {
		max, err := strconv.Atoi(maxStr)
		if err != nil {
			return RawElement{}, fmt.Errorf("line %d: invalid max_instances value %q: %w", lineNum, maxStr, err)
		}
		element.MaxInstances = &max
	}

	return element, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}

// splitList splits a semicolon-separated cell into trimmed ids.
func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, listSeparator)
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
