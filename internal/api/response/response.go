package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/reelgen/internal/apperr"
)

type envelope struct {
	Data any `json:"data"`
}

type collectionEnvelope struct {
	Data any            `json:"data"`
	Meta CollectionMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type CollectionMeta struct {
	Total int `json:"total"`
	Limit int `json:"limit"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, envelope{Data: data})
}

func Collection(w http.ResponseWriter, data any, meta CollectionMeta) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Meta: meta})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// AppError writes err using the status and code for its apperr kind.
// Errors outside the taxonomy become a generic 500.
func AppError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	switch ae.Kind {
	case apperr.KindValidation:
		Error(w, http.StatusBadRequest, "INVALID_REQUEST", ae.Message, nil)
	case apperr.KindJobNotFound:
		Error(w, http.StatusNotFound, "JOB_NOT_FOUND", err.Error(), nil)
	case apperr.KindGenerationFailed:
		Error(w, http.StatusUnprocessableEntity, "GENERATION_FAILED", err.Error(), nil)
	case apperr.KindHTTP:
		Error(w, http.StatusBadGateway, "SERVICE_ERROR", ae.Message, map[string]int{"status": ae.Status})
	case apperr.KindNetwork:
		Error(w, http.StatusBadGateway, "SERVICE_UNREACHABLE", err.Error(), nil)
	case apperr.KindDecode:
		Error(w, http.StatusBadGateway, "BAD_SERVICE_RESPONSE", err.Error(), nil)
	default:
		Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
