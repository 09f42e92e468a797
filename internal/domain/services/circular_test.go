package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
)

func block(id, name string, requires ...string) entities.Element {
	return entities.Element{
		ID:       id,
		Kind:     entities.KindPlotBlock,
		Name:     name,
		Requires: requires,
	}
}

func chainIDs(chain entities.CircularChain) []string {
	ids := make([]string, len(chain.Elements))
	for i, l := range chain.Elements {
		ids[i] = l.ID
	}
	return ids
}

func TestCycleDetector_NoCycles(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("a", "A", "b"),
			block("b", "B", "c"),
			block("c", "C"),
		},
	})

	assert.False(t, report.HasCircularReferences)
	assert.Empty(t, report.CircularChains)
	assert.Empty(t, report.AffectedElements)
}

func TestCycleDetector_EmptySet(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{})

	assert.False(t, report.HasCircularReferences)
	assert.NotNil(t, report.CircularChains)
	assert.NotNil(t, report.AffectedElements)
}

func TestCycleDetector_TwoNodeCycle(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("a", "A", "b"),
			block("b", "B", "a"),
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1, "a mutual dependency reports once")

	chain := report.CircularChains[0]
	assert.ElementsMatch(t, []string{"a", "b"}, chainIDs(chain))
	assert.Equal(t, entities.RelationshipRequires, chain.RelationshipType)
	assert.Equal(t, entities.SeverityError, chain.Severity)
	assert.Contains(t, chain.Message, "Circular dependency detected")

	require.Len(t, report.AffectedElements, 2)
	for _, affected := range report.AffectedElements {
		assert.Equal(t, 1, affected.ChainsInvolved)
		assert.Equal(t, "remove_dependency", affected.Resolution.Action)
	}
}

func TestCycleDetector_SelfReference(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		Tags: []entities.Element{
			{ID: "loop", Kind: entities.KindTag, Name: "Loop", Requires: []string{"loop"}},
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1)
	assert.Equal(t, []string{"loop"}, chainIDs(report.CircularChains[0]))
}

func TestCycleDetector_DanglingReference(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("a", "A", "ghost"),
		},
	})

	assert.False(t, report.HasCircularReferences)
}

func TestCycleDetector_MixedEdgeKinds(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			{ID: "a", Kind: entities.KindPlotBlock, Name: "A", Requires: []string{"b"}},
			{ID: "b", Kind: entities.KindPlotBlock, Name: "B", Enhances: []string{"a"}},
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1)
	assert.Equal(t, entities.RelationshipMixed, report.CircularChains[0].RelationshipType)
}

func TestCycleDetector_HierarchyCycle(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			{ID: "parent", Kind: entities.KindPlotBlock, Name: "Parent", Children: []string{"child"}},
			{ID: "child", Kind: entities.KindPlotBlock, Name: "Child", Children: []string{"parent"}},
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1)
	assert.Equal(t, entities.RelationshipParentChild, report.CircularChains[0].RelationshipType)
}

func TestCycleDetector_ConditionHierarchyCycle(t *testing.T) {
	detector := NewCycleDetector()

	// Parent/child links carry hierarchy for every kind, not just plot
	// blocks.
	report := detector.Detect(entities.ElementSet{
		Conditions: []entities.Element{
			{ID: "era", Kind: entities.KindCondition, Name: "Era", Children: []string{"marauders-era"}},
			{ID: "marauders-era", Kind: entities.KindCondition, Name: "Marauders Era", Children: []string{"era"}},
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1)
	assert.Equal(t, entities.RelationshipParentChild, report.CircularChains[0].RelationshipType)
}

func TestCycleDetector_TagHierarchyCycle(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		Tags: []entities.Element{
			{ID: "angst", Kind: entities.KindTag, Name: "Angst", ParentID: "hurt-comfort"},
			{ID: "hurt-comfort", Kind: entities.KindTag, Name: "Hurt/Comfort", ParentID: "angst"},
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1)
	assert.Equal(t, entities.RelationshipParentChild, report.CircularChains[0].RelationshipType)
}

func TestCycleDetector_CrossKindCycle(t *testing.T) {
	detector := NewCycleDetector()

	// The per-kind passes see no cycle; only the combined pass does.
	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			{ID: "block", Kind: entities.KindPlotBlock, Name: "Block", Requires: []string{"cond"}},
		},
		Conditions: []entities.Element{
			{ID: "cond", Kind: entities.KindCondition, Name: "Cond", Requires: []string{"block"}},
		},
	})

	assert.True(t, report.HasCircularReferences)
	require.Len(t, report.CircularChains, 1)
	assert.Equal(t, entities.RelationshipMixed, report.CircularChains[0].RelationshipType)
	assert.ElementsMatch(t, []string{"block", "cond"}, chainIDs(report.CircularChains[0]))
}

func TestCycleDetector_MultipleChains(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("a", "A", "b"),
			block("b", "B", "a"),
			block("c", "C", "d"),
			block("d", "D", "c"),
		},
	})

	assert.True(t, report.HasCircularReferences)
	assert.Len(t, report.CircularChains, 2)
	assert.Len(t, report.AffectedElements, 4)
}

func TestCycleDetector_SharedElementCounts(t *testing.T) {
	detector := NewCycleDetector()

	report := detector.Detect(entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("hub", "Hub", "a", "b"),
			block("a", "A", "hub"),
			block("b", "B", "hub"),
		},
	})

	require.True(t, report.HasCircularReferences)
	assert.Len(t, report.CircularChains, 2)

	var hub *entities.AffectedElement
	for i := range report.AffectedElements {
		if report.AffectedElements[i].ID == "hub" {
			hub = &report.AffectedElements[i]
		}
	}
	require.NotNil(t, hub)
	assert.Equal(t, 2, hub.ChainsInvolved)
}

func TestCycleDetector_Deterministic(t *testing.T) {
	detector := NewCycleDetector()

	set := entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("c", "C", "d"),
			block("a", "A", "b"),
			block("d", "D", "c"),
			block("b", "B", "a"),
		},
	}

	first := detector.Detect(set)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, detector.Detect(set))
	}
}

func TestCycleDetector_FindShortestChain(t *testing.T) {
	detector := NewCycleDetector()

	set := entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("a", "A", "b"),
			block("b", "B", "c"),
			block("c", "C", "a"),
			block("x", "X", "x"),
		},
	}

	shortest := detector.FindShortestChain(set)
	require.NotNil(t, shortest)
	assert.Equal(t, []string{"x"}, chainIDs(*shortest))

	assert.Nil(t, detector.FindShortestChain(entities.ElementSet{}))
}

func TestCycleDetector_SuggestResolutions(t *testing.T) {
	detector := NewCycleDetector()

	suggestions := detector.SuggestResolutions(entities.ElementSet{
		PlotBlocks: []entities.Element{
			block("a", "A", "b"),
			block("b", "B", "a"),
		},
	})

	require.Len(t, suggestions, 1)
	assert.Equal(t, "remove_dependency", suggestions[0].Action)
	assert.Len(t, suggestions[0].TargetIDs, 2)
	assert.Equal(t, "low", suggestions[0].Impact)
}
