package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/service"
	"github.com/availhq/avail/internal/utils"
	"github.com/google/uuid"
)

// RoomHandler handles HTTP requests for room management and room status
type RoomHandler struct {
	repo           repository.Repository
	bookingService *service.BookingService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(repo repository.Repository, bookingService *service.BookingService) *RoomHandler {
	return &RoomHandler{
		repo:           repo,
		bookingService: bookingService,
	}
}

// ServeHTTP routes room requests.
// Path formats: /api/rooms, /api/rooms/{roomID},
// /api/rooms/{roomID}/bookings, /api/rooms/{roomID}/availability
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	var roomID, sub string
	if len(pathParts) >= 3 {
		roomID = pathParts[2]
	}
	if len(pathParts) >= 4 {
		sub = pathParts[3]
	}

	switch {
	case r.Method == http.MethodGet && roomID == "":
		h.listRooms(w, r)
	case r.Method == http.MethodPost && roomID == "":
		h.createRoom(w, r)
	case r.Method == http.MethodGet && sub == "bookings":
		h.listRoomBookings(w, r, roomID)
	case r.Method == http.MethodGet && sub == "availability":
		h.checkAvailability(w, r, roomID)
	case r.Method == http.MethodGet && sub == "":
		h.getRoomStatus(w, r, roomID)
	default:
		http.NotFound(w, r)
	}
}

// listRooms handles GET /api/rooms to list the status of every room
func (h *RoomHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.bookingService.RoomStatuses(r.Context())
	if err != nil {
		log.Printf("Error listing rooms: %v", err)
		writeError(w, http.StatusInternalServerError, "Error retrieving rooms")
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// createRoom handles POST /api/rooms to register a new room
func (h *RoomHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	var room models.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	if room.Name == "" {
		writeError(w, http.StatusBadRequest, "Room name is required")
		return
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}

	if err := h.repo.SaveRoom(r.Context(), &room); err != nil {
		log.Printf("Error saving room: %v", err)
		writeError(w, http.StatusInternalServerError, "Error saving room")
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// getRoomStatus handles GET /api/rooms/{roomID} to report the room's
// current status
func (h *RoomHandler) getRoomStatus(w http.ResponseWriter, r *http.Request, roomID string) {
	status, err := h.bookingService.RoomStatus(r.Context(), roomID)
	if err != nil {
		log.Printf("Error getting room %s: %v", utils.SanitizeLogString(roomID), err)
		writeRepoError(w, err, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// listRoomBookings handles GET /api/rooms/{roomID}/bookings. The from and
// to query parameters are RFC 3339; they default to the current UTC day.
func (h *RoomHandler) listRoomBookings(w http.ResponseWriter, r *http.Request, roomID string) {
	from, to := service.DayWindow(time.Now().UTC())

	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'from' timestamp, want RFC 3339")
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = time.Parse(time.RFC3339, raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'to' timestamp, want RFC 3339")
			return
		}
	}

	bookings, err := h.bookingService.RoomBookings(r.Context(), roomID, from, to)
	if err != nil {
		log.Printf("Error listing bookings for room %s: %v", utils.SanitizeLogString(roomID), err)
		writeRepoError(w, err, "Room not found")
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// checkAvailability handles GET /api/rooms/{roomID}/availability with
// required RFC 3339 start and end query parameters
func (h *RoomHandler) checkAvailability(w http.ResponseWriter, r *http.Request, roomID string) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'start' timestamp, want RFC 3339")
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid 'end' timestamp, want RFC 3339")
		return
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "'start' must be before 'end'")
		return
	}

	if _, err := h.repo.GetRoom(r.Context(), roomID); err != nil {
		writeRepoError(w, err, "Room not found")
		return
	}

	available, err := h.bookingService.CheckAvailability(r.Context(), roomID, start, end)
	if err != nil {
		log.Printf("Error checking availability for room %s: %v", utils.SanitizeLogString(roomID), err)
		writeError(w, http.StatusInternalServerError, "Error checking availability")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":   roomID,
		"start":     start.UTC(),
		"end":       end.UTC(),
		"available": available,
	})
}
