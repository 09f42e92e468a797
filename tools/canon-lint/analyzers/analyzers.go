// Package analyzers provides all custom static analyzers for canon-core.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/ersonp/canon-core/tools/canon-lint/analyzers/loopcall"
	"github.com/ersonp/canon-core/tools/canon-lint/analyzers/maplookup"
	"github.com/ersonp/canon-core/tools/canon-lint/analyzers/nestedloop"
	"github.com/ersonp/canon-core/tools/canon-lint/analyzers/regexloop"
	"github.com/ersonp/canon-core/tools/canon-lint/analyzers/stringconcat"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		loopcall.Analyzer,
		maplookup.Analyzer,
		nestedloop.Analyzer,
		regexloop.Analyzer,
		stringconcat.Analyzer,
	}
}
