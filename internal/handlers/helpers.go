package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/decktag/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteServiceError maps service-layer sentinel errors to HTTP status codes
func WriteServiceError(w http.ResponseWriter, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrJobNotFound),
		errors.Is(err, models.ErrElementNotFound),
		errors.Is(err, models.ErrSlideNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidJobState):
		status = http.StatusConflict
	case errors.Is(err, models.ErrUnsupportedFormat):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrCorruptFile), errors.Is(err, models.ErrMalformedElement):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	}
	return WriteError(w, status, err.Error())
}
