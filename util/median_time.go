package util

import (
	"slices"

	"github.com/bsv-blockchain/verdict/errors"
)

// MedianTimeBlocks is the number of previous block timestamps that make up
// the median time past.
const MedianTimeBlocks = 11

// CalcPastMedianTime returns the median of up to MedianTimeBlocks timestamps.
// The caller's slice is left untouched. For an even count the upper middle
// element is returned, which is how the consensus rules have always done it.
func CalcPastMedianTime(timestamps []int64) (int64, error) {
	if len(timestamps) == 0 {
		return 0, errors.NewProcessingError("no timestamps for median time calculation")
	}

	if len(timestamps) > MedianTimeBlocks {
		return 0, errors.NewProcessingError("too many timestamps for median time calculation: %d", len(timestamps))
	}

	sorted := slices.Clone(timestamps)
	slices.Sort(sorted)

	return sorted[len(sorted)/2], nil
}
