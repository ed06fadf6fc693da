package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

func TestHttpStatusForDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantOK     bool
	}{
		{"usage", core.ErrUsage("bad flags"), http.StatusBadRequest, true},
		{"format", core.ErrFormat(core.CodeInvalidManifestJSON, "bad json"), http.StatusBadRequest, true},
		{"invalid argument", core.ErrInvalidArgument(core.CodeRunIDRequired, "run id is required"), http.StatusBadRequest, true},
		{"not found", core.ErrNotFound("run", "x"), http.StatusNotFound, true},
		{"validation", core.ErrValidation(core.CodeInvalidManifest, "bad"), http.StatusUnprocessableEntity, true},
		{"determinism", core.ErrDeterminism(core.CodeReplayExhausted, "exhausted"), http.StatusUnprocessableEntity, true},
		{"invalid operation", core.ErrInvalidOperation(core.CodeInvalidWorkflowConf, "bad config"), http.StatusUnprocessableEntity, true},
		{"run exists", core.ErrInvalidOperation(core.CodeRunExists, "exists"), http.StatusConflict, true},
		{"mismatch", core.ErrMismatch("differs"), http.StatusConflict, true},
		{"internal (default)", &core.DomainError{Category: core.ErrCatInternal, Code: "X"}, http.StatusInternalServerError, true},
		{"non-domain error", errors.New("plain"), 0, false},
		{"nil error", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := httpStatusForDomainError(tt.err)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
		})
	}
}
