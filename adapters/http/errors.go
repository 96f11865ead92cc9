package http

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/pkg/jsonapi"
	"github.com/artpar/accrue/ports"
)

// writeServiceError maps tracker errors onto JSON:API errors. Validation
// failures on any of params are reported as query parameter errors.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, resourceType, id string, params ...string) {
	var (
		verr     *app.ValidationError
		conflict *rate.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		if verr.Field == "page" || verr.Field == "pageSize" || slices.Contains(params, verr.Field) {
			jsonapi.WriteError(w, jsonapi.ErrInvalidParameter(verr.Field, verr.Message))
			return
		}
		jsonapi.WriteError(w, jsonapi.ErrValidation(verr.Field, verr.Message))
	case errors.As(err, &conflict):
		jsonapi.WriteError(w, jsonapi.ErrRateConflict(conflict.Reason, conflict.RateID))
	case errors.Is(err, ports.ErrNotFound):
		if id == "" {
			jsonapi.WriteError(w, jsonapi.ErrNotFound(resourceType))
			return
		}
		jsonapi.WriteError(w, jsonapi.ErrNotFoundWithID(resourceType, id))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		jsonapi.WriteError(w, jsonapi.ErrServiceUnavailable("request timed out"))
	default:
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request failed")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
	}
}

func notFoundRoute(r *http.Request) jsonapi.Error {
	return jsonapi.NewError(http.StatusNotFound, "route_not_found", "Not Found", "no route for "+r.URL.Path)
}

func methodNotAllowed(r *http.Request) jsonapi.Error {
	return jsonapi.ErrMethodNotAllowed(r.Method)
}
