package api

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

func httpStatusForDomainError(err error) (int, bool) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return 0, false
	}

	switch domErr.Category {
	case core.ErrCatUsage, core.ErrCatFormat, core.ErrCatInvalidArgument:
		return http.StatusBadRequest, true
	case core.ErrCatNotFound:
		return http.StatusNotFound, true
	case core.ErrCatValidation, core.ErrCatDeterminism:
		return http.StatusUnprocessableEntity, true
	case core.ErrCatInvalidOperation:
		if domErr.Code == core.CodeRunExists {
			return http.StatusConflict, true
		}
		return http.StatusUnprocessableEntity, true
	case core.ErrCatMismatch:
		return http.StatusConflict, true
	default:
		return http.StatusInternalServerError, true
	}
}

// respondDomainError maps err to a status and writes it. Non-domain errors
// are internal and their text is not exposed.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		s.logger.Error("request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.respondError(w, status, core.MessageOf(err))
}
