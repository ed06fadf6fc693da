package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/service/workflow"
)

// RenderVerification writes one line per run followed by a summary line and
// returns how many runs failed.
func RenderVerification(w io.Writer, results []workflow.RunVerification, color bool) (int, error) {
	s := styler{color: color}
	failed := 0

	var b strings.Builder
	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(&b, "%s %s\n", s.render(okStyle, "OK  "), r.RunID)
			continue
		}
		failed++
		fmt.Fprintf(&b, "%s %s: %s\n", s.render(failStyle, "FAIL"), r.RunID, FailureReason(r))
	}

	summary := fmt.Sprintf("%d run(s) verified, %d failed.", len(results)-failed, failed)
	if failed > 0 {
		b.WriteString(s.render(failStyle, summary))
	} else {
		b.WriteString(s.render(okStyle, summary))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return failed, err
}

// FailureReason summarises why a run did not verify.
func FailureReason(r workflow.RunVerification) string {
	if r.Err != nil {
		return core.MessageOf(r.Err)
	}
	if r.Result == nil {
		return "no result"
	}
	switch r.Result.Status {
	case workflow.StatusInvalidManifest:
		return "manifest validation failed: " + strings.Join(r.Result.Violations, " ")
	case workflow.StatusEmptyEventLog:
		return "event log is empty"
	case workflow.StatusMismatch:
		return strings.Join(r.Result.Mismatches, " ")
	default:
		return string(r.Result.Status)
	}
}
