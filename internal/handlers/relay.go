package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mentor-chat/internal/models"
	"mentor-chat/internal/services"
)

const maxRelayBodyBytes = 1 << 20

// RelayHandler is the single-endpoint proxy between the chat widget and the
// upstream model. Its bodies are flat {"response"} / {"error"} objects, not the
// structured errors the rest of the API uses.
type RelayHandler struct {
	provider  services.Provider
	configErr error
}

// NewRelayHandler serves provider. A non-nil configErr makes every request fail
// with it before the body is read.
func NewRelayHandler(provider services.Provider, configErr error) *RelayHandler {
	return &RelayHandler{provider: provider, configErr: configErr}
}

func (h *RelayHandler) Relay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, models.RelayError{Error: "Method Not Allowed"})
		return
	}

	if h.configErr != nil {
		writeJSON(w, http.StatusInternalServerError, models.RelayError{Error: h.configErr.Error()})
		return
	}

	var req models.RelayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRelayBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RelayError{Error: "Invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, models.RelayError{Error: "Invalid request body"})
		return
	}
	for _, msg := range req.Messages {
		if !msg.Role.Valid() {
			writeJSON(w, http.StatusBadRequest, models.RelayError{Error: "Invalid request body"})
			return
		}
	}

	text, err := h.provider.Generate(r.Context(), req.Messages)
	if err != nil {
		label := services.ProviderLabel(h.provider.Name())
		slog.Error("Relay call failed", "provider", h.provider.Name(), "error", err, "request_id", requestID(r))

		var malformed *services.MalformedResponseError
		var cfgErr *services.ConfigurationError
		switch {
		case errors.As(err, &malformed):
			writeJSON(w, http.StatusInternalServerError, models.RelayError{Error: "Invalid response format from " + label})
		case errors.As(err, &cfgErr):
			writeJSON(w, http.StatusInternalServerError, models.RelayError{Error: cfgErr.Message})
		default:
			writeJSON(w, http.StatusInternalServerError, models.RelayError{Error: "Failed to get response from " + label})
		}
		return
	}

	writeJSON(w, http.StatusOK, models.RelayResponse{Response: text})
}
