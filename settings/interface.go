package settings

import (
	"net/url"
	"time"

	"github.com/bsv-blockchain/verdict/chaincfg"
)

type ValidationSettings struct {
	// MaxThreadCount is the number of workers the block validator fans out to.
	MaxThreadCount int
	// TrustedBlockHeight skips script evaluation for blocks at or below it.
	TrustedBlockHeight uint32
	PrefetchBatchSize   int
	PrefetchConcurrency int
	KnownBlockTTL       time.Duration
}

type UtxoStoreSettings struct {
	URL                  *url.URL
	DBTimeout            time.Duration
	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
}

type UtxoCacheSettings struct {
	MaxEntries             int
	LocalMaxEntries        int
	Shards                 int
	TransactionIDCacheSize int
	ChainSegmentCacheSize  int
	BlockHeightCacheSize   int
}

type PendingBlocksSettings struct {
	LockingEnabled bool
}

type Settings struct {
	ClientName     string
	DataFolder     string
	LogLevel       string
	PrettyLogs     bool
	ChainCfgParams *chaincfg.Params
	Validation     ValidationSettings
	UtxoStore      UtxoStoreSettings
	UtxoCache      UtxoCacheSettings
	PendingBlocks  PendingBlocksSettings
}
