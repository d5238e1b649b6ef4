package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/digiteinfotech/kairon/internal/models"
)

// Pre-marshaled fallback response so a failed encode never produces an empty
// body.
var fallbackErrorResponse []byte

func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Failure(500, "Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response with the given status code. The
// payload is marshaled before headers are written so encoding errors can
// still change the status.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeSuccess renders a success envelope with HTTP 200.
func writeSuccess(w http.ResponseWriter, message any, data any) {
	writeJSONResponse(w, http.StatusOK, models.Success(message, data))
}

// writeError maps a core error onto the envelope and a matching HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := models.ErrorCodeFor(err)
	status := code
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	writeJSONResponse(w, status, models.Failure(code, models.MessageFor(err)))
}

// decodeJSON decodes the request body into out, rendering the error envelope
// on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		slog.Warn("Server.decodeJSON: failed to decode request body", "error", err, "path", r.URL.Path)
		writeJSONResponse(w, http.StatusBadRequest, models.Failure(400, "Invalid JSON format"))
		return false
	}
	return true
}
