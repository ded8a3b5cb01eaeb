package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"sparrow/internal/database"
	"sparrow/internal/models"
)

// LinkEventHandler records link-flow outcomes reported by the client app.
type LinkEventHandler struct {
	events *database.LinkEventRepository
}

func NewLinkEventHandler(events *database.LinkEventRepository) *LinkEventHandler {
	return &LinkEventHandler{events: events}
}

type createLinkEventRequest struct {
	UserID        int64   `json:"user_id"`
	EventType     string  `json:"event_type"`
	LinkSessionID string  `json:"link_session_id"`
	RequestID     *string `json:"request_id"`
	ErrorType     *string `json:"error_type"`
	ErrorCode     *string `json:"error_code"`
}

func (h *LinkEventHandler) HandleCreateLinkEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createLinkEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 || req.EventType == "" {
		http.Error(w, "user_id and event_type are required", http.StatusBadRequest)
		return
	}

	event, err := h.events.Create(r.Context(), models.CreateLinkEventParams{
		UserID:        req.UserID,
		EventType:     req.EventType,
		LinkSessionID: req.LinkSessionID,
		RequestID:     req.RequestID,
		ErrorType:     req.ErrorType,
		ErrorCode:     req.ErrorCode,
	})
	if err != nil {
		log.Printf("Error recording link event for user %d: %v", req.UserID, err)
		http.Error(w, "Failed to record link event", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}
