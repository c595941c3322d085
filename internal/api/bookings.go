package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/service"
	"github.com/availhq/avail/internal/utils"
)

// BookingHandler handles HTTP requests for booking management
type BookingHandler struct {
	bookingService *service.BookingService
	assistant      *service.Assistant
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService *service.BookingService, assistant *service.Assistant) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		assistant:      assistant,
	}
}

// createBookingRequest is the body for POST /api/bookings
type createBookingRequest struct {
	RoomID    string    `json:"room_id"`
	CompanyID string    `json:"company_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// conflictResponse is returned with status 409 when a booking overlaps
// existing bookings
type conflictResponse struct {
	Error       string            `json:"error"`
	Explanation string            `json:"explanation"`
	Conflicts   []*models.Booking `json:"conflicts"`
}

// ServeHTTP routes booking requests.
// Path format: /api/bookings/{bookingID}
func (h *BookingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	var bookingID string
	if len(pathParts) >= 3 {
		bookingID = pathParts[2]
	}

	switch {
	case r.Method == http.MethodPost && bookingID == "":
		h.createBooking(w, r)
	case r.Method == http.MethodGet && bookingID != "":
		h.getBooking(w, r, bookingID)
	case r.Method == http.MethodDelete && bookingID != "":
		h.deleteBooking(w, r, bookingID)
	default:
		http.NotFound(w, r)
	}
}

// createBooking handles POST /api/bookings. Overlapping bookings are
// rejected with 409 and an explanation of the conflict.
func (h *BookingHandler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	booking, err := h.bookingService.CreateBooking(r.Context(), service.CreateBookingInput{
		RoomID:    req.RoomID,
		CompanyID: req.CompanyID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		var conflictErr *service.ConflictError
		if errors.As(err, &conflictErr) {
			writeJSON(w, http.StatusConflict, conflictResponse{
				Error:       "Requested time overlaps existing bookings",
				Explanation: h.assistant.ExplainConflict(r.Context(), req.StartTime, req.EndTime, conflictErr.Conflicts),
				Conflicts:   conflictErr.Conflicts,
			})
			return
		}
		log.Printf("Error creating booking: %v", err)
		writeRepoError(w, err, "Room or company not found")
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// getBooking handles GET /api/bookings/{bookingID}
func (h *BookingHandler) getBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	booking, err := h.bookingService.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeRepoError(w, err, "Booking not found")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// deleteBooking handles DELETE /api/bookings/{bookingID}
func (h *BookingHandler) deleteBooking(w http.ResponseWriter, r *http.Request, bookingID string) {
	if _, err := h.bookingService.CancelBooking(r.Context(), bookingID); err != nil {
		log.Printf("Error cancelling booking %s: %v", utils.SanitizeLogString(bookingID), err)
		writeRepoError(w, err, "Booking not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Booking cancelled successfully",
	})
}
