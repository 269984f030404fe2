package main

import (
	"context"
	"testing"

	"newsbot/config"
	"newsbot/deduplication"
	"newsbot/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:     storage.Config{Backend: storage.BackendMemory},
		Strategy:  deduplication.StrategyLexical,
		Threshold: deduplication.DefaultSimilarityThreshold,
		Budget:    10,
	}
}

func TestBuildVectorizer(t *testing.T) {
	cfg := testConfig()

	v, err := buildVectorizer(cfg, "")
	require.NoError(t, err)
	assert.Equal(t, "lexical", v.Name())

	_, err = buildVectorizer(cfg, "phonetic")
	assert.Error(t, err)

	// semantic without any provider credentials
	_, err = buildVectorizer(cfg, "semantic")
	assert.ErrorIs(t, err, deduplication.ErrNoEmbeddingsProvider)
}

func TestRuntimePassOnEmptyStore(t *testing.T) {
	cfg := testConfig()
	cfg.Threshold = 0.9
	rt, err := newRuntime(context.Background(), cfg, runtimeOptions{})
	require.NoError(t, err)
	defer rt.Close()

	result, err := rt.runner.RunPass(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, result.Deleted)
	assert.Equal(t, 0.9, result.Threshold)
	assert.Same(t, result, rt.runner.Last())
}

func TestRuntimeBuildsIngestor(t *testing.T) {
	cfg := testConfig()
	cfg.PTTEnabled = true

	rt, err := newRuntime(context.Background(), cfg, runtimeOptions{ingest: true})
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.producer)
	assert.Nil(t, rt.archiver)
}
