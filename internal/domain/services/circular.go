package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

// CycleDetector finds circular references in element dependency graphs.
// It is stateless: every call builds its graphs from the supplied set,
// so detections can run concurrently on one detector.
//
// Three passes run per detection: one dependency pass per element kind
// (requires and enhances edges), a hierarchy pass per kind over
// parent/child links, and a combined pass across all kinds that only
// reports chains spanning at least two kinds. Dangling references are
// skipped, never an error.
type CycleDetector struct{}

// NewCycleDetector creates a new CycleDetector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{}
}

// Detect runs all passes and aggregates chains and affected elements.
func (d *CycleDetector) Detect(set entities.ElementSet) entities.CycleReport {
	report := entities.CycleReport{
		CircularChains:   []entities.CircularChain{},
		AffectedElements: []entities.AffectedElement{},
	}

	for _, group := range [][]entities.Element{set.PlotBlocks, set.Conditions, set.Tags} {
		g := buildDependencyGraph(group)
		for _, cycle := range g.findCycles() {
			report.CircularChains = append(report.CircularChains, g.chainFor(cycle))
		}

		hg := buildHierarchyGraph(group)
		for _, cycle := range hg.findCycles() {
			report.CircularChains = append(report.CircularChains, hg.chainFor(cycle))
		}
	}

	combined := make([]entities.Element, 0, len(set.PlotBlocks)+len(set.Conditions)+len(set.Tags))
	combined = append(combined, set.PlotBlocks...)
	combined = append(combined, set.Conditions...)
	combined = append(combined, set.Tags...)
	ug := buildDependencyGraph(combined)
	for _, cycle := range ug.findCycles() {
		chain := ug.chainFor(cycle)
		if countKinds(chain) >= 2 {
			chain.RelationshipType = entities.RelationshipMixed
		}
		// single-kind chains keep their per-kind classification and are
		// usually dropped as duplicates below
		report.CircularChains = append(report.CircularChains, chain)
	}

	report.CircularChains = dedupeChains(report.CircularChains)
	report.HasCircularReferences = len(report.CircularChains) > 0
	report.AffectedElements = aggregateAffected(report.CircularChains)
	return report
}

// FindShortestChain returns the shortest chain found in the set, or nil
// when there are none. Length ties keep the first chain discovered.
func (d *CycleDetector) FindShortestChain(set entities.ElementSet) *entities.CircularChain {
	report := d.Detect(set)
	var shortest *entities.CircularChain
	for i := range report.CircularChains {
		c := &report.CircularChains[i]
		if shortest == nil || len(c.Elements) < len(shortest.Elements) {
			shortest = c
		}
	}
	return shortest
}

// SuggestResolutions proposes one minimal fix per chain: dropping the
// chain's first dependency edge.
func (d *CycleDetector) SuggestResolutions(set entities.ElementSet) []entities.ResolutionSuggestion {
	report := d.Detect(set)
	suggestions := make([]entities.ResolutionSuggestion, 0, len(report.CircularChains))
	for _, chain := range report.CircularChains {
		first := chain.Elements[0]
		next := chain.Elements[(0+1)%len(chain.Elements)]
		suggestions = append(suggestions, entities.ResolutionSuggestion{
			Action:    "remove_dependency",
			TargetIDs: []string{first.ID, next.ID},
			Impact:    "low",
			Reason:    fmt.Sprintf("removing the %s -> %s dependency breaks this chain", first.Name, next.Name),
		})
	}
	return suggestions
}

// graphEdge is one outgoing dependency. Soft edges come from Enhances,
// hard edges from Requires; hierarchy graphs ignore the distinction.
type graphEdge struct {
	to   string
	soft bool
}

// depGraph is an adjacency-list dependency graph over elements.
type depGraph struct {
	links     map[string]entities.ChainLink
	adj       map[string][]graphEdge
	hierarchy bool
}

func newDepGraph(els []entities.Element, hierarchy bool) *depGraph {
	g := &depGraph{
		links:     make(map[string]entities.ChainLink, len(els)),
		adj:       make(map[string][]graphEdge),
		hierarchy: hierarchy,
	}
	for _, el := range els {
		g.links[el.ID] = entities.ChainLink{ID: el.ID, Kind: el.Kind, Name: el.Name}
	}
	return g
}

func buildDependencyGraph(els []entities.Element) *depGraph {
	g := newDepGraph(els, false)
	for _, el := range els {
		for _, req := range el.Requires {
			g.addEdge(el.ID, req, false)
		}
		for _, enh := range el.Enhances {
			g.addEdge(el.ID, enh, true)
		}
	}
	g.sortEdges()
	return g
}

func buildHierarchyGraph(els []entities.Element) *depGraph {
	g := newDepGraph(els, true)
	for _, el := range els {
		for _, child := range el.Children {
			g.addEdge(el.ID, child, false)
		}
		if el.ParentID != "" {
			g.addEdge(el.ParentID, el.ID, false)
		}
	}
	g.sortEdges()
	return g
}

func (g *depGraph) addEdge(from, to string, soft bool) {
	for _, e := range g.adj[from] {
		if e.to == to && e.soft == soft {
			return
		}
	}
	g.adj[from] = append(g.adj[from], graphEdge{to: to, soft: soft})
}

// sortEdges orders adjacency lists so traversal does not depend on the
// order elements arrived in.
func (g *depGraph) sortEdges() {
	for from := range g.adj {
		edges := g.adj[from]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].to != edges[j].to {
				return edges[i].to < edges[j].to
			}
			return !edges[i].soft && edges[j].soft
		})
	}
}

// findCycles runs a DFS with a recursion stack from every unvisited
// node in sorted id order. Each back-edge yields one cycle, rebuilt by
// slicing the current path at the back-edge target. A self-reference
// yields a one-node cycle.
func (g *depGraph) findCycles() [][]string {
	ids := make([]string, 0, len(g.links))
	for id := range g.links {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var cycles [][]string
	visited := make(map[string]bool, len(ids))
	onStack := make(map[string]bool)
	var path []string

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, e := range g.adj[id] {
			if _, ok := g.links[e.to]; !ok {
				// dangling reference: absent neighbor, not an error
				continue
			}
			if onStack[e.to] {
				start := 0
				for i, p := range path {
					if p == e.to {
						start = i
						break
					}
				}
				cycle := append([]string(nil), path[start:]...)
				cycles = append(cycles, cycle)
				continue
			}
			if !visited[e.to] {
				visit(e.to)
			}
		}

		onStack[id] = false
		path = path[:len(path)-1]
	}

	for _, id := range ids {
		if !visited[id] {
			visit(id)
		}
	}
	return cycles
}

// edgeKinds reports whether a hard and/or a soft edge connects from to to.
func (g *depGraph) edgeKinds(from, to string) (hard, soft bool) {
	for _, e := range g.adj[from] {
		if e.to != to {
			continue
		}
		if e.soft {
			soft = true
		} else {
			hard = true
		}
	}
	return hard, soft
}

// chainFor converts a raw cycle into a reportable chain. Hierarchy
// cycles classify as parent_child; dependency cycles classify as mixed
// when requires and enhances edges both appear, requires otherwise.
func (g *depGraph) chainFor(cycle []string) entities.CircularChain {
	links := make([]entities.ChainLink, len(cycle))
	for i, id := range cycle {
		links[i] = g.links[id]
	}

	relType := entities.RelationshipParentChild
	if !g.hierarchy {
		var anyHard, anySoft bool
		for i := range cycle {
			hard, soft := g.edgeKinds(cycle[i], cycle[(i+1)%len(cycle)])
			anyHard = anyHard || hard
			anySoft = anySoft || soft
		}
		if anyHard && anySoft {
			relType = entities.RelationshipMixed
		} else {
			relType = entities.RelationshipRequires
		}
	}

	names := make([]string, 0, len(links)+1)
	for _, l := range links {
		names = append(names, l.Name)
	}
	names = append(names, links[0].Name)

	return entities.CircularChain{
		Elements:         links,
		RelationshipType: relType,
		Severity:         entities.SeverityError,
		Message:          "Circular dependency detected: " + strings.Join(names, " -> "),
	}
}

func countKinds(chain entities.CircularChain) int {
	kinds := make(map[entities.ElementKind]bool, 3)
	for _, l := range chain.Elements {
		kinds[l.Kind] = true
	}
	return len(kinds)
}

// dedupeChains drops chains that repeat an already reported member set
// and relationship type, so a two-node mutual dependency reports once
// no matter where traversal entered it.
func dedupeChains(chains []entities.CircularChain) []entities.CircularChain {
	seen := make(map[string]bool, len(chains))
	out := chains[:0]
	for _, chain := range chains {
		ids := make([]string, len(chain.Elements))
		for i, l := range chain.Elements {
			ids[i] = l.ID
		}
		sort.Strings(ids)
		key := string(chain.RelationshipType) + "|" + strings.Join(ids, "|")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, chain)
	}
	return out
}

// aggregateAffected lists each element once with the number of chains
// it participates in, in first-seen order.
func aggregateAffected(chains []entities.CircularChain) []entities.AffectedElement {
	counts := make(map[string]int)
	linkByID := make(map[string]entities.ChainLink)
	var order []string
	for _, chain := range chains {
		for _, l := range chain.Elements {
			if _, ok := counts[l.ID]; !ok {
				order = append(order, l.ID)
				linkByID[l.ID] = l
			}
			counts[l.ID]++
		}
	}

	affected := make([]entities.AffectedElement, 0, len(order))
	for _, id := range order {
		l := linkByID[id]
		n := counts[id]
		affected = append(affected, entities.AffectedElement{
			ID:             l.ID,
			Kind:           l.Kind,
			Name:           l.Name,
			ChainsInvolved: n,
			Resolution: entities.ChainResolution{
				Action: "remove_dependency",
				Reason: fmt.Sprintf("part of %d circular chain(s); removing one dependency edge breaks the loop", n),
			},
		})
	}
	return affected
}
