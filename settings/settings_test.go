package settings

import (
	"testing"
	"time"

	"github.com/bsv-blockchain/verdict/chaincfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// check settings object is initialised
func TestInitialiseSettings(t *testing.T) {
	tSettings := NewSettings()

	require.NotNil(t, tSettings.ChainCfgParams)
	require.NotNil(t, tSettings.UtxoStore.URL)

	assert.Positive(t, tSettings.Validation.MaxThreadCount)
	assert.Positive(t, tSettings.UtxoCache.MaxEntries)
	assert.Positive(t, tSettings.UtxoCache.Shards)
	assert.True(t, tSettings.PendingBlocks.LockingEnabled)
}

func TestDefaultUtxoStoreURL(t *testing.T) {
	tSettings := NewSettings()
	assert.Equal(t, "sqlitememory", tSettings.UtxoStore.URL.Scheme)
}

func TestTestSettings(t *testing.T) {
	tSettings := NewTestSettings()

	require.Equal(t, &chaincfg.RegressionNetParams, tSettings.ChainCfgParams)
	assert.False(t, tSettings.PrettyLogs)
	assert.Equal(t, 4, tSettings.UtxoCache.Shards)
}

func TestGetDurationFallback(t *testing.T) {
	assert.Equal(t, 3*time.Second, getDuration("verdict_test_missing_duration", 3*time.Second))
}
