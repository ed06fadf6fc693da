package core

import "strings"

// ValidateManifest checks a manifest against the structural rules and returns
// one message per violated rule, in a fixed order. An empty result means the
// manifest is valid. Every rule is evaluated.
func ValidateManifest(m *Manifest) []string {
	var errs []string

	if IsBlank(m.ManifestVersion) {
		errs = append(errs, "ManifestVersion is required.")
	}
	if IsBlank(m.RunID) {
		errs = append(errs, "RunId is required.")
	}
	if IsBlank(m.Seed.SeedID) {
		errs = append(errs, "Seed.SeedId is required.")
	}
	if IsBlank(m.Seed.Algorithm) {
		errs = append(errs, "Seed.Algorithm is required.")
	}

	switch {
	case IsBlank(m.TimeSource.Mode):
		errs = append(errs, "TimeSource.Mode is required.")
	case !strings.EqualFold(m.TimeSource.Mode, TimeModeRecord) &&
		!strings.EqualFold(m.TimeSource.Mode, TimeModeReplay):
		errs = append(errs, "TimeSource.Mode must be 'record' or 'replay'.")
	}

	if IsBlank(m.TimeSource.Source) {
		errs = append(errs, "TimeSource.Source is required.")
	}
	if IsBlank(m.TimeSource.ClockID) {
		errs = append(errs, "TimeSource.ClockId is required.")
	}
	if IsBlank(m.TimeSource.Precision) {
		errs = append(errs, "TimeSource.Precision is required.")
	}

	if len(m.Models) == 0 {
		errs = append(errs, "At least one ModelRef is required.")
	}
	if len(m.Tools) == 0 {
		errs = append(errs, "At least one ToolRef is required.")
	}
	if len(m.PolicyDecisions) == 0 {
		errs = append(errs, "At least one PolicyDecision is required.")
	}

	if m.CompletedAtUTC != nil && m.CompletedAtUTC.Before(m.StartedAtUTC) {
		errs = append(errs, "CompletedAtUtc cannot be earlier than StartedAtUtc.")
	}

	return errs
}

// IsBlank reports whether s is empty or whitespace-only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
