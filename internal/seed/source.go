// Package seed produces and locks the random seed of a workflow run.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// Seed metadata written by RandomSeedSource.
const (
	AlgorithmSystemRandom  = "system-random-int64"
	DerivationLockedPerRun = "locked-per-run"
)

// RandomSeedSource generates a fresh uniform seed in [1, MaxInt64].
type RandomSeedSource struct {
	next func() int64
}

// NewRandomSeedSource creates a generator backed by math/rand/v2.
func NewRandomSeedSource() *RandomSeedSource {
	return &RandomSeedSource{
		next: func() int64 { return rand.Int64N(math.MaxInt64) + 1 },
	}
}

// CreateSeed generates a seed for runID.
func (s *RandomSeedSource) CreateSeed(runID string) (core.SeedInfo, error) {
	return core.SeedInfo{
		SeedID:     core.SeedIDFor(runID),
		Algorithm:  AlgorithmSystemRandom,
		Value:      s.next(),
		Derivation: DerivationLockedPerRun,
	}, nil
}

// FixedSeedSource returns one pre-supplied seed. When bound to a run id it
// refuses every other run id, which keeps golden fixtures honest.
type FixedSeedSource struct {
	seed  core.SeedInfo
	runID string
}

// NewFixedSeedSource returns seed for any run id.
func NewFixedSeedSource(seed core.SeedInfo) *FixedSeedSource {
	return &FixedSeedSource{seed: seed}
}

// NewBoundSeedSource returns seed only for runID.
func NewBoundSeedSource(seed core.SeedInfo, runID string) *FixedSeedSource {
	return &FixedSeedSource{seed: seed, runID: runID}
}

// CreateSeed returns the fixed seed.
func (s *FixedSeedSource) CreateSeed(runID string) (core.SeedInfo, error) {
	if s.runID != "" && runID != s.runID {
		return core.SeedInfo{}, core.ErrInvalidOperation(core.CodeUnexpectedRunID,
			fmt.Sprintf("unexpected run id: %s", runID)).
			WithDetail("expected", s.runID)
	}
	return s.seed, nil
}
