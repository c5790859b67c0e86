package server

import (
	"encoding/json"
	"net/http"

	"VidTube/core/apperr"
	"VidTube/logger"
)

// ApiResponse is the envelope of every JSON response.
type ApiResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body ApiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("failed to encode response", logger.ErrorField(err))
	}
}

// respond writes a success envelope whose statusCode matches the HTTP status.
func respond(w http.ResponseWriter, status int, data interface{}, message string) {
	writeJSON(w, status, ApiResponse{StatusCode: status, Data: data, Message: message, Success: status < 400})
}

// writeError renders err. Untyped errors become a generic 500 and their cause is
// logged, never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("requestID", RequestIDFromContext(r.Context())),
			logger.ErrorField(err))
	}
	writeJSON(w, appErr.StatusCode, ApiResponse{
		StatusCode: appErr.StatusCode,
		Data:       nil,
		Message:    appErr.Message,
		Success:    false,
	})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}
