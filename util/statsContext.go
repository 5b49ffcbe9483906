package util

import (
	"context"
	"time"

	"github.com/ordishs/gocore"
)

type validationStatKey struct{}

// ValidationStat is the root of the validation timing tree. A block's stat
// holds the stats of its transaction checks, which hold their script runs and
// utxo lookups.
var ValidationStat = gocore.NewStat("validation", true)

// StartStat opens the stat named key beneath the one carried by ctx, or beneath
// ValidationStat at the top of a call chain. The returned context carries the
// new stat so nested work is timed under it. ignoreChildren defaults to true.
func StartStat(ctx context.Context, key string, ignoreChildren ...bool) (time.Time, *gocore.Stat, context.Context) {
	parent := StatFromContext(ctx)
	if parent == nil {
		parent = ValidationStat
	}

	ignore := true
	if len(ignoreChildren) > 0 {
		ignore = ignoreChildren[0]
	}

	stat := parent.NewStat(key, ignore)

	return gocore.CurrentTime(), stat, context.WithValue(ctx, validationStatKey{}, stat)
}

// StatFromContext returns the stat opened by the innermost StartStat, or nil.
func StatFromContext(ctx context.Context) *gocore.Stat {
	stat, _ := ctx.Value(validationStatKey{}).(*gocore.Stat)
	return stat
}
