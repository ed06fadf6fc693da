package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// Golden fixture values shared by the workflow, API and CLI tests.
const GoldenRunID = "run-golden-hello-1"

var (
	GoldenInstant = time.Date(2026, 2, 26, 19, 0, 0, 0, time.UTC)

	GoldenSeed = core.SeedInfo{
		SeedID:     core.SeedIDFor(GoldenRunID),
		Algorithm:  "test-sequence",
		Value:      424242,
		Derivation: "golden-fixed",
	}

	GoldenTimeSource = core.TimeSourceInfo{
		Mode:      core.TimeModeRecord,
		Source:    "golden-fixed",
		ClockID:   "clock-golden-1",
		Precision: "utc-millis",
		Notes:     "golden fixture",
	}
)

// NewTestManifest returns a valid manifest built from the golden values.
// Options override individual fields.
func NewTestManifest(opts ...func(*core.Manifest)) *core.Manifest {
	completed := GoldenInstant
	m := &core.Manifest{
		ManifestVersion: core.ManifestVersion,
		RunID:           GoldenRunID,
		Seed:            GoldenSeed,
		TimeSource:      GoldenTimeSource,
		Models:          []core.ModelRef{{ModelID: "local-null", Provider: "local", Version: "0.0"}},
		Tools:           []core.ToolRef{{ToolID: "noop", Version: "0.0"}},
		PolicyDecisions: []core.PolicyDecision{{PolicyID: "policy-allow", Decision: "allow", Reason: "placeholder"}},
		StartedAtUTC:    GoldenInstant,
		CompletedAtUTC:  &completed,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TempFile writes content to dir/name and returns the path.
func TempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}
