package entities

// DefaultCategories are the built-in categories seeded on fandom
// creation. These cannot be deleted by users.
var DefaultCategories = []Category{
	{
		Name:        "romance",
		Description: "Pairings, ship dynamics, relationship arcs",
	},
	{
		Name:        "time_travel",
		Description: "Temporal mechanics, do-overs, fix-it loops",
	},
	{
		Name:        "power_source",
		Description: "Origins and mechanics of a protagonist's abilities",
	},
	{
		Name:        "setting",
		Description: "Alternate universes, locations, eras",
	},
	{
		Name:        "tone",
		Description: "Angst, fluff, crack, dark themes",
	},
	{
		Name:        "structure",
		Description: "Framing devices and plot scaffolding",
	},
}

// DefaultCategoryNames returns just the names of default categories for
// quick lookup.
func DefaultCategoryNames() []string {
	names := make([]string, len(DefaultCategories))
	for i, c := range DefaultCategories {
		names[i] = c.Name
	}
	return names
}

// IsDefaultCategory checks if a category name is a built-in default.
func IsDefaultCategory(name string) bool {
	for _, c := range DefaultCategories {
		if c.Name == name {
			return true
		}
	}
	return false
}
