package seed

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// Lock pins the seed of each run id for the lifetime of the process.
//
// The source is consulted at most once per run id that generated
// successfully: concurrent first lookups of the same run id share a single
// generation, and lookups for different run ids never wait on each other.
// Entries are never evicted or replaced.
type Lock struct {
	source core.SeedSource
	seeds  sync.Map // run id -> core.SeedInfo
	group  singleflight.Group
}

// NewLock wraps source.
func NewLock(source core.SeedSource) *Lock {
	return &Lock{source: source}
}

// LockedSeed returns the seed for runID, generating it on first use.
func (l *Lock) LockedSeed(runID string) (core.SeedInfo, error) {
	if core.IsBlank(runID) {
		return core.SeedInfo{}, core.ErrInvalidArgument(core.CodeRunIDRequired, "run id is required")
	}

	if v, ok := l.seeds.Load(runID); ok {
		return v.(core.SeedInfo), nil
	}

	v, err, _ := l.group.Do(runID, func() (interface{}, error) {
		// A flight for this key may have completed between Load and Do.
		if v, ok := l.seeds.Load(runID); ok {
			return v, nil
		}
		seed, err := l.source.CreateSeed(runID)
		if err != nil {
			return nil, err
		}
		actual, _ := l.seeds.LoadOrStore(runID, seed)
		return actual, nil
	})
	if err != nil {
		return core.SeedInfo{}, err
	}
	return v.(core.SeedInfo), nil
}
