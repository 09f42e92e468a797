package entities

// ElementSet groups a fandom's elements by kind for graph analysis.
// Slices may be nil; detectors treat a missing kind as empty.
type ElementSet struct {
	PlotBlocks []Element `json:"plot_blocks,omitempty"`
	Conditions []Element `json:"conditions,omitempty"`
	Tags       []Element `json:"tags,omitempty"`
}

// Selection is the input to conflict detection: the elements a user has
// picked plus the full universe they were picked from. The universe is
// carried so category membership and display names resolve without a
// storage lookup.
type Selection struct {
	PlotBlocks    []Element `json:"selected_plot_blocks"`
	Conditions    []Element `json:"selected_conditions"`
	AllPlotBlocks []Element `json:"all_plot_blocks"`
	AllConditions []Element `json:"all_conditions"`
}

// RuleContext is the input to rule evaluation: the fandom scope plus
// the ids of the selected tags and plot blocks.
type RuleContext struct {
	FandomID           string   `json:"fandom_id"`
	SelectedTags       []string `json:"selected_tags"`
	SelectedPlotBlocks []string `json:"selected_plot_blocks"`
}
