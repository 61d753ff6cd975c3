package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"wmsinbound/inbound"
	"wmsinbound/repository"
)

// ApiResponse is the envelope of every JSON reply.
type ApiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp ApiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, ApiResponse{Success: true, Data: data})
}

func writeJSONError(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, ApiResponse{Success: false, Message: message, Data: data})
}

// errorStatus maps engine errors onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, inbound.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, inbound.ErrValidation), errors.Is(err, inbound.ErrUnknownSlot):
		return http.StatusBadRequest
	case errors.Is(err, inbound.ErrAlreadyProcessed),
		errors.Is(err, inbound.ErrInvalidTransition),
		errors.Is(err, repository.ErrDuplicateNumber):
		return http.StatusConflict
	case errors.Is(err, inbound.ErrMissingPhotos):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorData exposes structured details for errors that carry them.
func errorData(err error) any {
	var missing *inbound.MissingPhotosError
	if errors.As(err, &missing) {
		return map[string]any{"missing_slots": missing.Slots}
	}
	var batch *inbound.LineBatchError
	if errors.As(err, &batch) {
		return map[string]any{"saved": batch.Saved, "failed": batch.Failed}
	}
	return nil
}
