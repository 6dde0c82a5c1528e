package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"videostack-backend/internal/middleware"
	"videostack-backend/internal/models"
	"videostack-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(middleware.RequestIDHeader)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID(r),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: requestID(r),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.UnauthorizedError:
		writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", e.Message, r))
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", e.Message, r))
	case *services.UnavailableError:
		writeJSON(w, http.StatusServiceUnavailable, errorResp("SERVICE_UNAVAILABLE", e.Message, r))
	default:
		log.Printf("[%s] %s %s: %v", requestID(r), r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

// uuidParam reads a chi route param as a UUID, answering 400 when it is malformed.
func uuidParam(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+label+" ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func pageParams(r *http.Request) (skip, limit int) {
	skip, _ = strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return skip, limit
}
