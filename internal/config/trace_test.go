package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceReportsStrongestLayer(t *testing.T) {
	layers := []Layer{
		{Name: LayerOverride, Config: Config{Document: "flag-doc"}},
		{Name: LayerFile, Config: Config{Document: "file-doc", Store: StoreConfig{Driver: DriverSQLite, Path: "x.db"}}},
		{Name: LayerDefault, Config: Defaults()},
	}
	trace := Trace(layers)

	byPath := make(map[string]Provenance, len(trace))
	for _, entry := range trace {
		byPath[entry.Path] = entry
	}
	assert.Equal(t, Provenance{Path: "document", Layer: LayerOverride, Value: "flag-doc"}, byPath["document"])
	assert.Equal(t, LayerFile, byPath["store.driver"].Layer)
	assert.Equal(t, LayerDefault, byPath["history.depth"].Layer)
	assert.Empty(t, byPath["columns.required"].Layer)
	require.Contains(t, byPath, "persistence.autosave_delay")
	assert.Equal(t, "document", trace[0].Path)
}

func TestMergeMatchesLoad(t *testing.T) {
	path := writeConfig(t, "document: traced\n")
	layers, err := LoadLayers(path, Config{Log: LogConfig{Level: "debug"}})
	require.NoError(t, err)
	require.Len(t, layers, 3)

	cfg, err := Load(path, Config{Log: LogConfig{Level: "debug"}})
	require.NoError(t, err)
	assert.Equal(t, cfg, Merge(layers))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "traced", cfg.Document)
}
