package settings

import (
	"time"

	"github.com/bsv-blockchain/verdict/chaincfg"
)

func NewSettings() *Settings {
	params, err := chaincfg.GetChainParams(getString("network", "mainnet"))
	if err != nil {
		panic(err)
	}

	trustedHeight := getInt("validation_trustedBlockHeight", 0)
	if trustedHeight < 0 {
		trustedHeight = 0
	}

	return &Settings{
		ClientName:     getString("clientName", "verdict"),
		DataFolder:     getString("dataFolder", "data"),
		LogLevel:       getString("logLevel", "INFO"),
		PrettyLogs:     getBool("PRETTY_LOGS", true),
		ChainCfgParams: params,
		Validation: ValidationSettings{
			MaxThreadCount: getInt("validation_maxThreadCount", 4),
			//nolint:gosec // clamped above
			TrustedBlockHeight:  uint32(trustedHeight),
			PrefetchBatchSize:   getInt("validation_prefetchBatchSize", 1024),
			PrefetchConcurrency: getInt("validation_prefetchConcurrency", 8),
			KnownBlockTTL:       getDuration("validation_knownBlockTTL", 10*time.Minute),
		},
		UtxoStore: UtxoStoreSettings{
			URL:                  getURL("utxostore", "sqlitememory:///utxo"),
			DBTimeout:            getDuration("utxostore_dbTimeout", 5*time.Second),
			PostgresMaxIdleConns: getInt("utxostore_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("utxostore_postgresMaxOpenConns", 80),
		},
		UtxoCache: UtxoCacheSettings{
			MaxEntries:             getInt("utxocache_maxEntries", 1_000_000),
			LocalMaxEntries:        getInt("utxocache_localMaxEntries", 16_384),
			Shards:                 getInt("utxocache_shards", 64),
			TransactionIDCacheSize: getInt("utxocache_transactionIdCacheSize", 262_144),
			ChainSegmentCacheSize:  getInt("utxocache_chainSegmentCacheSize", 1460),
			BlockHeightCacheSize:   getInt("utxocache_blockHeightCacheSize", 1460),
		},
		PendingBlocks: PendingBlocksSettings{
			LockingEnabled: getBool("pendingblocks_lockingEnabled", true),
		},
	}
}

// NewTestSettings returns settings tuned for unit tests: regtest params, an in
// memory sqlite utxo store and small caches.
func NewTestSettings() *Settings {
	s := NewSettings()
	s.ChainCfgParams = &chaincfg.RegressionNetParams
	s.PrettyLogs = false
	s.UtxoCache.MaxEntries = 1024
	s.UtxoCache.LocalMaxEntries = 64
	s.UtxoCache.Shards = 4

	return s
}
