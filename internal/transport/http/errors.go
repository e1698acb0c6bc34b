package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"world-quiz-service/internal/domain"
	"world-quiz-service/internal/worldmap"
)

var (
	errInvalidPayload     = errors.New("invalid message payload")
	errUnsupportedMessage = errors.New("unsupported message type")
	errNoMapAsset         = errors.New("no map asset configured")
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps domain errors to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrScoreNotFound):
		return http.StatusNotFound, "score_not_found"
	case errors.Is(err, errNoMapAsset):
		return http.StatusNotFound, "no_map_asset"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, errInvalidPayload), errors.Is(err, errUnsupportedMessage):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrCatalogUnavailable), errors.Is(err, domain.ErrInvalidCatalog):
		return http.StatusServiceUnavailable, "catalog_unavailable"
	case errors.Is(err, worldmap.ErrInvalidAsset):
		return http.StatusInternalServerError, "invalid_map_asset"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func errorBody(err error) errorPayload {
	_, code := classify(err)
	return errorPayload{Code: code, Message: err.Error()}
}

func writeError(w http.ResponseWriter, err error) {
	status, _ := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
