package main

// Default limits for CLI commands.
const (
	DefaultListLimit    = 50
	DefaultSuggestLimit = 5
	DefaultExportLimit  = 1000
)

// Valid export formats.
var validFormats = []string{"json", "csv", "markdown"}

// Valid element kinds, as accepted by --kind flags.
var validKinds = []string{"plot_block", "condition", "tag"}
