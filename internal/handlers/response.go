package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/AnshRaj112/inkwell-backend/internal/apperr"
	"go.uber.org/zap"
)

// Response is the JSON envelope of every API reply.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Response{Success: status < 400, Message: message, Data: data})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAccessDenied:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Unexpected errors are
// already logged by the services and only get a generic message.
func respondError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		log.Debug("request failed", zap.Error(err))
	}
	respond(w, status, apperr.Message(err), nil)
}

func badRequest(w http.ResponseWriter, message string) {
	respond(w, http.StatusBadRequest, message, nil)
}
