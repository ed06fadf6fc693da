package store

import (
	"strings"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// checkRunID rejects run ids that cannot name a run directory or row.
func checkRunID(runID string) error {
	if core.IsBlank(runID) {
		return core.ErrInvalidArgument(core.CodeRunIDRequired, "run id is required")
	}
	if runID == "." || runID == ".." || strings.ContainsAny(runID, `/\`) || strings.ContainsRune(runID, 0) {
		return core.ErrInvalidArgument(core.CodeInvalidRunID, "invalid run id: "+runID)
	}
	return nil
}
