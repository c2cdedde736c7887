package ensemble

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuildsEveryEnsemble(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{
		"adob", "aue", "awe", "dacc", "goowe", "leveraging_bag",
		"ozabag", "ozabag_adwin", "ozaboost", "rcd", "srp",
	}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			e, err := New(name, nbFactory, WithEnsembleSize(2), WithChunkSize(20), WithLogger(testLogger()))
			require.NoError(t, err)
			trainAll(t, e, blobs(100, 91, false))
			_, err = e.Predict(blobs(1, 92, false)[0])
			require.NoError(t, err)
			assert.Equal(t, int64(100), e.Stats().Instances)
		})
	}

	e, err := New("aue", nbFactory)
	require.NoError(t, err)
	assert.Equal(t, "AUE", e.Name())

	_, err = New("bogus", nbFactory)
	assert.Error(t, err)
}

func TestSettingsOptions(t *testing.T) {
	s := Settings{
		Size:              4,
		Lambda:            2,
		Seed:              9,
		Workers:           2,
		ChunkSize:         30,
		ComparisonTimeout: time.Second,
		SubspaceMode:      "resampling",
		Regression:        true,
	}
	cfg := buildConfig(nil, s.Options())
	assert.Equal(t, 4, cfg.size)
	assert.Equal(t, 2.0, cfg.lambda)
	assert.Equal(t, uint64(9), cfg.seed)
	assert.Equal(t, 2, cfg.workers)
	assert.Equal(t, 30, cfg.chunkSize)
	assert.Equal(t, time.Second, cfg.timeout)
	assert.Equal(t, Resampling, cfg.subspaceMode)
	assert.True(t, cfg.regression)
	assert.Equal(t, 4, cfg.stored, "stored size follows the ensemble size")

	defaults := buildConfig(nil, Settings{}.Options())
	assert.Equal(t, defaultConfig().size, defaults.size)
	assert.Equal(t, defaultConfig().delta, defaults.delta)
}
