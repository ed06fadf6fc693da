package core

import (
	"slices"
	"time"
)

// ManifestVersion is the manifest schema version emitted by this build.
const ManifestVersion = "0.1"

// Time source modes. A TimeSource is fixed to one of them at construction.
const (
	TimeModeRecord = "record"
	TimeModeReplay = "replay"
)

// SeedInfo describes the random seed locked for a run.
type SeedInfo struct {
	SeedID     string `json:"seedId"`
	Algorithm  string `json:"algorithm"`
	Value      int64  `json:"value"`
	Derivation string `json:"derivation,omitempty"`
}

// Equal reports whether two seeds match field by field.
func (s SeedInfo) Equal(o SeedInfo) bool {
	return s.SeedID == o.SeedID &&
		s.Algorithm == o.Algorithm &&
		s.Value == o.Value &&
		s.Derivation == o.Derivation
}

// SeedIDFor derives the seed id for a run, so seeds built independently for
// the same run compare equal.
func SeedIDFor(runID string) string {
	return "seed-" + runID
}

// TimeSourceInfo is the self-description of the clock that drove a run.
type TimeSourceInfo struct {
	Mode      string `json:"mode"`
	Source    string `json:"source"`
	ClockID   string `json:"clockId"`
	Precision string `json:"precision"`
	Notes     string `json:"notes,omitempty"`
}

// ModelRef references a model used by the workflow.
type ModelRef struct {
	ModelID  string `json:"modelId"`
	Provider string `json:"provider"`
	Version  string `json:"version"`
}

// ToolRef references a tool available to the workflow.
type ToolRef struct {
	ToolID  string `json:"toolId"`
	Version string `json:"version"`
}

// PolicyDecision records a policy outcome applied to the run.
type PolicyDecision struct {
	PolicyID string `json:"policyId"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Manifest is the versioned record of one run's deterministic inputs.
// Reference lists are ordered; two manifests with the same entries in a
// different order are different manifests.
type Manifest struct {
	ManifestVersion string           `json:"manifestVersion"`
	RunID           string           `json:"runId"`
	Seed            SeedInfo         `json:"seed"`
	TimeSource      TimeSourceInfo   `json:"timeSource"`
	Models          []ModelRef       `json:"models"`
	Tools           []ToolRef        `json:"tools"`
	PolicyDecisions []PolicyDecision `json:"policyDecisions"`
	StartedAtUTC    time.Time        `json:"startedAtUtc"`
	CompletedAtUTC  *time.Time       `json:"completedAtUtc"`
}

// ManifestDiff compares the deterministic fields of two manifests and
// returns one message per differing field. TimeSource is excluded: a replayed
// run reports replay mode by construction.
func ManifestDiff(expected, actual *Manifest) []string {
	var diffs []string

	if expected.ManifestVersion != actual.ManifestVersion {
		diffs = append(diffs, "ManifestVersion differs.")
	}
	if expected.RunID != actual.RunID {
		diffs = append(diffs, "RunId differs.")
	}
	if !expected.Seed.Equal(actual.Seed) {
		diffs = append(diffs, "Seed differs.")
	}
	if !slices.Equal(expected.Models, actual.Models) {
		diffs = append(diffs, "Models differ.")
	}
	if !slices.Equal(expected.Tools, actual.Tools) {
		diffs = append(diffs, "Tools differ.")
	}
	if !slices.Equal(expected.PolicyDecisions, actual.PolicyDecisions) {
		diffs = append(diffs, "PolicyDecisions differ.")
	}
	if !expected.StartedAtUTC.Equal(actual.StartedAtUTC) {
		diffs = append(diffs, "StartedAtUtc differs.")
	}
	if !optionalTimeEqual(expected.CompletedAtUTC, actual.CompletedAtUTC) {
		diffs = append(diffs, "CompletedAtUtc differs.")
	}

	return diffs
}

func optionalTimeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
