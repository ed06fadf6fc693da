// Package workflow records hello-workflow runs and verifies recorded runs by
// replaying them against their persisted artifacts.
package workflow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/config"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// HelloMessage is the message carried by the workflow.hello event.
const HelloMessage = "hello"

// BuildHello assembles the manifest and event log of one hello-workflow run.
//
// All non-determinism is drawn through the injected sources at fixed points:
// the clock is read once, the seed is fetched once, and both are used for
// every timestamp and seed field in the result. Given the same seed, instant
// and configuration the output is identical.
func BuildHello(runID string, seeds core.SeedProvider, clock core.TimeSource, cfg config.HelloWorkflowConfig) (*core.Artifacts, error) {
	if core.IsBlank(runID) {
		return nil, core.ErrInvalidArgument(core.CodeRunIDRequired, "run id is required")
	}

	now, err := clock.Now()
	if err != nil {
		return nil, err
	}
	seed, err := seeds.LockedSeed(runID)
	if err != nil {
		return nil, err
	}
	timeSource := clock.Describe()

	if violations := cfg.Validate(); len(violations) > 0 {
		return nil, core.ErrInvalidOperation(core.CodeInvalidWorkflowConf, strings.Join(violations, " ")).
			WithDetail("violations", violations)
	}

	completed := now
	manifest := &core.Manifest{
		ManifestVersion: core.ManifestVersion,
		RunID:           runID,
		Seed:            seed,
		TimeSource:      timeSource,
		Models:          cfg.ModelRefs(),
		Tools:           cfg.ToolRefs(),
		PolicyDecisions: cfg.PolicyDecisionRefs(),
		StartedAtUTC:    now,
		CompletedAtUTC:  &completed,
	}
	if violations := core.ValidateManifest(manifest); len(violations) > 0 {
		return nil, core.ErrInvalidOperation(core.CodeInvalidManifest, strings.Join(violations, " ")).
			WithDetail("violations", violations)
	}

	data, err := json.Marshal(core.HelloPayload{
		Message:         HelloMessage,
		ManifestVersion: manifest.ManifestVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding hello payload: %w", err)
	}

	return &core.Artifacts{
		Manifest: manifest,
		EventLogEntries: []core.EventLogEntry{{
			RunID:         runID,
			EventType:     core.EventTypeHello,
			Data:          data,
			OccurredAtUTC: now,
		}},
	}, nil
}

// ConfigFromManifest rebuilds the hello-workflow configuration that
// produced a manifest's reference lists, in the same order.
func ConfigFromManifest(m *core.Manifest) config.HelloWorkflowConfig {
	h := config.HelloWorkflowConfig{
		Models:          make([]config.ModelEntry, len(m.Models)),
		Tools:           make([]config.ToolEntry, len(m.Tools)),
		PolicyDecisions: make([]config.PolicyEntry, len(m.PolicyDecisions)),
	}
	for i, r := range m.Models {
		h.Models[i] = config.ModelEntry{ModelID: r.ModelID, Provider: r.Provider, Version: r.Version}
	}
	for i, r := range m.Tools {
		h.Tools[i] = config.ToolEntry{ToolID: r.ToolID, Version: r.Version}
	}
	for i, r := range m.PolicyDecisions {
		h.PolicyDecisions[i] = config.PolicyEntry{PolicyID: r.PolicyID, Decision: r.Decision, Reason: r.Reason}
	}
	return h
}
