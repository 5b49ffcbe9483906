package blockvalidation

import (
	"sync"
	"time"
)

// StatisticsWindow is the number of recent blocks the throughput averages
// are taken over.
const StatisticsWindow = 100

type blockSample struct {
	elapsed          time.Duration
	transactionCount int
}

// Statistics keeps a rolling window of block processing samples.
type Statistics struct {
	mu      sync.Mutex
	samples []blockSample
	next    int
	total   uint64
}

func NewStatistics() *Statistics {
	return &Statistics{
		samples: make([]blockSample, 0, StatisticsWindow),
	}
}

// Record adds one processed block, evicting the oldest sample once the window
// is full.
func (s *Statistics) Record(elapsed time.Duration, transactionCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := blockSample{elapsed: elapsed, transactionCount: transactionCount}

	if len(s.samples) < StatisticsWindow {
		s.samples = append(s.samples, sample)
	} else {
		s.samples[s.next] = sample
	}

	s.next = (s.next + 1) % StatisticsWindow
	s.total++
}

type StatisticsSnapshot struct {
	BlocksProcessed              uint64  `json:"blocksProcessed"`
	AverageBlocksPerSecond       float64 `json:"averageBlocksPerSecond"`
	AverageTransactionsPerSecond float64 `json:"averageTransactionsPerSecond"`
}

func (s *Statistics) Snapshot() StatisticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		elapsed      time.Duration
		transactions int
	)

	for _, sample := range s.samples {
		elapsed += sample.elapsed
		transactions += sample.transactionCount
	}

	snapshot := StatisticsSnapshot{BlocksProcessed: s.total}

	if seconds := elapsed.Seconds(); seconds > 0 {
		snapshot.AverageBlocksPerSecond = float64(len(s.samples)) / seconds
		snapshot.AverageTransactionsPerSecond = float64(transactions) / seconds
	}

	return snapshot
}

func (s *Statistics) AverageBlocksPerSecond() float64 {
	return s.Snapshot().AverageBlocksPerSecond
}

func (s *Statistics) AverageTransactionsPerSecond() float64 {
	return s.Snapshot().AverageTransactionsPerSecond
}
