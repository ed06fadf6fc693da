package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/logging"
)

// DefaultVerifyConcurrency bounds VerifyAll when no limit is given.
const DefaultVerifyConcurrency = 4

// Verifier replays runs loaded from an ArtifactStore.
type Verifier struct {
	store  core.ArtifactStore
	logger *logging.Logger
}

// NewVerifier creates a verifier over store.
func NewVerifier(store core.ArtifactStore, logger *logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Verifier{store: store, logger: logger}
}

// VerifyRun loads a run's artifacts and replays them.
func (v *Verifier) VerifyRun(ctx context.Context, runID string) (*ReplayResult, error) {
	logger := v.logger.WithRun(runID).WithMode(core.TimeModeReplay)

	manifest, err := v.store.LoadManifest(ctx, runID)
	if err != nil {
		return nil, err
	}
	events, err := v.store.LoadEventLog(ctx, runID)
	if err != nil {
		return nil, err
	}

	result, err := Verify(manifest, events)
	if err != nil {
		logger.Warn("replay failed", "error", err)
		return nil, err
	}
	logger.Info("replay finished",
		"status", string(result.Status),
		"mismatches", len(result.Mismatches),
		"violations", len(result.Violations))
	return result, nil
}

// RunVerification is one run's outcome in VerifyAll. Exactly one of Result
// and Err is set.
type RunVerification struct {
	RunID  string
	Result *ReplayResult
	Err    error
}

// OK reports whether the run was verified.
func (r RunVerification) OK() bool {
	return r.Err == nil && r.Result != nil && r.Result.OK()
}

// VerifyAll replays every stored run with at most limit replays in flight.
// Per-run failures are reported in the results; the returned error is only
// set when the runs cannot be listed or ctx is cancelled. Results follow the
// store's listing order.
func (v *Verifier) VerifyAll(ctx context.Context, limit int) ([]RunVerification, error) {
	runs, err := v.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultVerifyConcurrency
	}

	results := make([]RunVerification, len(runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, run := range runs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := v.VerifyRun(gctx, run.RunID)
			results[i] = RunVerification{RunID: run.RunID, Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
