package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/mocks"
)

func TestSuggestService_Similar(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.5}}
	vectorDB := &mocks.VectorDB{Elements: []entities.Element{
		{ID: "slow-burn", Kind: entities.KindPlotBlock, Name: "Slow Burn"},
		{ID: "mutual-pining", Kind: entities.KindPlotBlock, Name: "Mutual Pining"},
	}}
	svc := NewSuggestService(embedder, vectorDB)

	elements, err := svc.Similar(context.Background(), "slow romance", 0)
	require.NoError(t, err)

	assert.Len(t, elements, 2)
	assert.Equal(t, 1, embedder.EmbedCallCount)
	assert.Equal(t, DefaultSuggestLimit, vectorDB.SearchLastLimit, "zero limit falls back to the default")
}

func TestSuggestService_Similar_EmbedderFailure(t *testing.T) {
	embedder := &mocks.Embedder{Err: assert.AnError}
	svc := NewSuggestService(embedder, &mocks.VectorDB{})

	_, err := svc.Similar(context.Background(), "anything", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating query embedding")
}

func TestSuggestService_SimilarByKind(t *testing.T) {
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.5}}
	vectorDB := &mocks.VectorDB{Elements: []entities.Element{
		{ID: "slow-burn", Kind: entities.KindPlotBlock, Name: "Slow Burn"},
		{ID: "angst", Kind: entities.KindTag, Name: "Angst"},
	}}
	svc := NewSuggestService(embedder, vectorDB)

	elements, err := svc.SimilarByKind(context.Background(), "romance", entities.KindTag, 5)
	require.NoError(t, err)

	require.Len(t, elements, 1)
	assert.Equal(t, "angst", elements[0].ID)
}

func TestSuggestService_Alternatives(t *testing.T) {
	vectorDB := &mocks.VectorDB{Elements: []entities.Element{
		{ID: "soulmates", Kind: entities.KindPlotBlock, Name: "Soulmates", Embedding: []float32{0.9}},
		{ID: "fake-dating", Kind: entities.KindPlotBlock, Name: "Fake Dating"},
		{ID: "arranged-marriage", Kind: entities.KindPlotBlock, Name: "Arranged Marriage"},
	}}
	svc := NewSuggestService(&mocks.Embedder{}, vectorDB)

	alternatives, err := svc.Alternatives(context.Background(), "soulmates", 2)
	require.NoError(t, err)

	require.Len(t, alternatives, 2)
	for _, alt := range alternatives {
		assert.NotEqual(t, "soulmates", alt.ID, "the element is not its own alternative")
	}
}

func TestSuggestService_Alternatives_NoEmbedding(t *testing.T) {
	vectorDB := &mocks.VectorDB{Elements: []entities.Element{
		{ID: "bare", Kind: entities.KindPlotBlock, Name: "Bare"},
	}}
	svc := NewSuggestService(&mocks.Embedder{}, vectorDB)

	_, err := svc.Alternatives(context.Background(), "bare", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding")
}

func TestSuggestService_Alternatives_UnknownElement(t *testing.T) {
	svc := NewSuggestService(&mocks.Embedder{}, &mocks.VectorDB{})

	_, err := svc.Alternatives(context.Background(), "ghost", 2)
	require.Error(t, err)
}
