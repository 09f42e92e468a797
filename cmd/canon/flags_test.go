package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/canon-core/internal/domain/entities"
	"github.com/ersonp/canon-core/internal/domain/services"
	"github.com/ersonp/canon-core/internal/infrastructure/config"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    entities.ElementKind
		wantErr bool
	}{
		{name: "empty means no filter", input: "", want: ""},
		{name: "plot block", input: "plot_block", want: entities.KindPlotBlock},
		{name: "condition", input: "condition", want: entities.KindCondition},
		{name: "tag", input: "tag", want: entities.KindTag},
		{name: "unknown kind", input: "chapter", wantErr: true},
		{name: "wrong case", input: "Tag", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKind(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSetFlags(t *testing.T) {
	parsed, err := parseSetFlags([]string{"tag=angst", "limit=3"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"tag": "angst", "limit": "3"}, parsed)

	// Values may contain '='.
	parsed, err = parseSetFlags([]string{"msg=a=b"})
	require.NoError(t, err)
	assert.Equal(t, "a=b", parsed["msg"])

	_, err = parseSetFlags([]string{"no-separator"})
	require.Error(t, err)

	_, err = parseSetFlags([]string{"=value"})
	require.Error(t, err)
}

func TestEngineOptions(t *testing.T) {
	t.Run("defaults when unset", func(t *testing.T) {
		opts := engineOptions(config.EngineConfig{})
		assert.Equal(t, services.DefaultRuleEngineOptions(), opts)
	})

	t.Run("explicit false overrides default true", func(t *testing.T) {
		strict := false
		cycles := false
		opts := engineOptions(config.EngineConfig{
			StrictMode:                  &strict,
			CircularDependencyDetection: &cycles,
			ParallelExecution:           true,
		})
		assert.False(t, opts.StrictMode)
		assert.False(t, opts.CircularDependencyDetection)
		assert.True(t, opts.ParallelExecution)
	})

	t.Run("execution budget", func(t *testing.T) {
		opts := engineOptions(config.EngineConfig{MaxExecutionTimeMS: 250})
		assert.Equal(t, int64(250), opts.MaxExecutionTime.Milliseconds())
	})
}

func TestSelectionMutation(t *testing.T) {
	refs := addRef(nil, "Angst")
	refs = addRef(refs, "Fluff")
	assert.Equal(t, []string{"Angst", "Fluff"}, refs)

	// Adding an existing ref is a no-op, case-insensitively.
	refs = addRef(refs, "angst")
	assert.Len(t, refs, 2)

	refs = removeRef(refs, "ANGST")
	assert.Equal(t, []string{"Fluff"}, refs)

	refs = removeRef(refs, "missing")
	assert.Equal(t, []string{"Fluff"}, refs)
}
