package api

import (
	"encoding/json"
	"net/http"

	"github.com/availhq/avail/internal/service"
)

// AskHandler handles natural-language questions for the booking assistant
type AskHandler struct {
	assistant *service.Assistant
}

// NewAskHandler creates a new ask handler
func NewAskHandler(assistant *service.Assistant) *AskHandler {
	return &AskHandler{assistant: assistant}
}

// askRequest is the body for POST /api/ask
type askRequest struct {
	Question string `json:"question"`
	RoomID   string `json:"room_id,omitempty"`
}

// ServeHTTP handles POST /api/ask
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	answer := h.assistant.Answer(r.Context(), req.Question, req.RoomID)
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}
