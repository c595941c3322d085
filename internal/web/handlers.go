package web

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/availhq/avail/internal/config"
	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/service"
	"github.com/availhq/avail/internal/utils"
)

// Handler manages web UI requests
type Handler struct {
	repo             repository.Repository
	bookingService   *service.BookingService
	analyticsService *service.AnalyticsService
	assistant        *service.Assistant
	templates        *template.Template
	sseManager       *SSEManager
	staticDir        string
}

// NewHandler creates a new web UI handler
func NewHandler(repo repository.Repository, bookingService *service.BookingService, analyticsService *service.AnalyticsService, assistant *service.Assistant, cfg config.ServerConfig) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatTime": formatTime,
		"formatDate": formatDate,
	}).ParseGlob(filepath.Join(cfg.TemplatesDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Handler{
		repo:             repo,
		bookingService:   bookingService,
		analyticsService: analyticsService,
		assistant:        assistant,
		templates:        tmpl,
		sseManager:       NewSSEManager(),
		staticDir:        cfg.StaticDir,
	}, nil
}

// formatTime is a template helper function to format a time of day
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("15:04")
}

// formatDate is a template helper function to format a calendar date
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

// SetupRoutes registers web UI routes on the given mux
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	// Serve static files
	fileServer := http.FileServer(http.Dir(h.staticDir))
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))

	// Serve SSE endpoint
	mux.Handle("/events", h.sseManager)

	// Pages
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/room/", h.handleRoom)
	mux.HandleFunc("/cancel", h.handleCancel)
	mux.HandleFunc("/analytics", h.handleAnalytics)

	// HTMX partial endpoints
	mux.HandleFunc("/partial/rooms", h.handlePartialRooms)
}

// NotifyBookingUpdate sends an update notification to all SSE clients.
// This should be called whenever a booking is created or cancelled.
func (h *Handler) NotifyBookingUpdate(booking *models.Booking) {
	h.sseManager.NotifyBookingUpdate(booking)
}

// Shutdown gracefully shuts down the web handler and its SSE manager
func (h *Handler) Shutdown() {
	h.sseManager.Shutdown()
}

// handleIndex renders the main page with the status of every room. If the
// store is unavailable the page still renders, with an empty room list
// and a warning banner.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle the root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	statuses, err := h.bookingService.RoomStatuses(r.Context())
	degraded := false
	if err != nil {
		log.Printf("Error getting room statuses: %v", err)
		statuses = nil
		degraded = true
	}

	viewModel := struct {
		Rooms       []*models.RoomStatus
		Degraded    bool
		LastUpdated string
		CurrentYear int
	}{
		Rooms:       statuses,
		Degraded:    degraded,
		LastUpdated: time.Now().UTC().Format("2006-01-02 15:04:05"),
		CurrentYear: time.Now().Year(),
	}

	h.render(w, "index", viewModel)
}

// handlePartialRooms renders just the room list for HTMX updates
func (h *Handler) handlePartialRooms(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.bookingService.RoomStatuses(r.Context())
	if err != nil {
		log.Printf("Error getting room statuses: %v", err)
		statuses = nil
	}

	viewModel := struct {
		Rooms []*models.RoomStatus
	}{
		Rooms: statuses,
	}

	h.render(w, "room_list", viewModel)
}

// handleRoom routes room pages.
// Path formats: /room/{roomID}, /room/{roomID}/book, /room/{roomID}/ask
func (h *Handler) handleRoom(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) < 2 || pathParts[1] == "" {
		http.NotFound(w, r)
		return
	}
	roomID := pathParts[1]

	var sub string
	if len(pathParts) >= 3 {
		sub = pathParts[2]
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.roomPage(w, r, roomID)
	case sub == "book" && r.Method == http.MethodGet:
		h.bookForm(w, r, roomID, "")
	case sub == "book" && r.Method == http.MethodPost:
		h.bookSubmit(w, r, roomID)
	case sub == "ask" && r.Method == http.MethodGet:
		h.askPage(w, r, roomID, "", "")
	case sub == "ask" && r.Method == http.MethodPost:
		h.askSubmit(w, r, roomID)
	default:
		http.NotFound(w, r)
	}
}

// roomPage renders one room's status and its bookings for the day. On
// store failure it still renders, showing the room as free with no
// bookings rather than an error page.
func (h *Handler) roomPage(w http.ResponseWriter, r *http.Request, roomID string) {
	status, err := h.bookingService.RoomStatus(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Error getting room %s: %v", utils.SanitizeLogString(roomID), err)
		status = &models.RoomStatus{RoomID: roomID, RoomName: roomID, Available: true}
	}

	from, to := service.DayWindow(time.Now().UTC())
	bookings, err := h.bookingService.RoomBookings(r.Context(), roomID, from, to)
	if err != nil {
		log.Printf("Error getting bookings for room %s: %v", utils.SanitizeLogString(roomID), err)
		bookings = nil
	}

	viewModel := struct {
		Status           *models.RoomStatus
		Bookings         []*models.Booking
		AssistantEnabled bool
	}{
		Status:           status,
		Bookings:         bookings,
		AssistantEnabled: h.assistant.Enabled(),
	}

	h.render(w, "room", viewModel)
}

// bookFormModel is the view model for the booking form, shared by the
// empty form, assistant-prefilled form and conflict re-render
type bookFormModel struct {
	RoomID    string
	Date      string
	StartTime string
	Duration  string
	Title     string
	Company   string
	Companies []*models.Company
	Error     string
}

// bookForm renders the booking form, pre-filled from query parameters so
// assistant confirmation links land on a completed form
func (h *Handler) bookForm(w http.ResponseWriter, r *http.Request, roomID, errorMessage string) {
	if _, err := h.repo.GetRoom(r.Context(), roomID); err != nil {
		http.NotFound(w, r)
		return
	}

	companies, err := h.repo.ListCompanies(r.Context())
	if err != nil {
		log.Printf("Error listing companies: %v", err)
	}

	query := r.URL.Query()
	model := bookFormModel{
		RoomID:    roomID,
		Date:      query.Get("date"),
		StartTime: query.Get("start_time"),
		Duration:  query.Get("duration"),
		Title:     query.Get("title"),
		Company:   query.Get("company"),
		Companies: companies,
		Error:     errorMessage,
	}
	if model.Date == "" {
		model.Date = time.Now().UTC().Format("2006-01-02")
	}
	if model.Duration == "" {
		model.Duration = "30"
	}

	h.render(w, "book", model)
}

// bookSubmit creates a booking from the form and redirects to the room
// page. Conflicts re-render the form with an explanation.
func (h *Handler) bookSubmit(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	model := bookFormModel{
		RoomID:    roomID,
		Date:      r.PostFormValue("date"),
		StartTime: r.PostFormValue("start_time"),
		Duration:  r.PostFormValue("duration"),
		Title:     r.PostFormValue("title"),
		Company:   r.PostFormValue("company"),
	}

	start, err := time.ParseInLocation("2006-01-02T15:04", model.Date+"T"+model.StartTime, time.UTC)
	if err != nil {
		h.rerenderBookForm(w, r, model, "Invalid date or start time")
		return
	}
	duration, err := strconv.Atoi(model.Duration)
	if err != nil || duration <= 0 {
		h.rerenderBookForm(w, r, model, "Invalid duration")
		return
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	_, err = h.bookingService.CreateBooking(r.Context(), service.CreateBookingInput{
		RoomID:    roomID,
		CompanyID: model.Company,
		Title:     model.Title,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		var conflictErr *service.ConflictError
		switch {
		case errors.As(err, &conflictErr):
			h.rerenderBookForm(w, r, model,
				h.assistant.ExplainConflict(r.Context(), start, end, conflictErr.Conflicts))
		case errors.Is(err, repository.ErrNotFound):
			h.rerenderBookForm(w, r, model, "Unknown room or company")
		case errors.Is(err, models.ErrInvalidBooking):
			h.rerenderBookForm(w, r, model, "Invalid booking: "+err.Error())
		default:
			log.Printf("Error creating booking: %v", err)
			http.Error(w, "Failed to create booking", http.StatusInternalServerError)
		}
		return
	}

	http.Redirect(w, r, "/room/"+roomID, http.StatusSeeOther)
}

func (h *Handler) rerenderBookForm(w http.ResponseWriter, r *http.Request, model bookFormModel, errorMessage string) {
	companies, err := h.repo.ListCompanies(r.Context())
	if err != nil {
		log.Printf("Error listing companies: %v", err)
	}
	model.Companies = companies
	model.Error = errorMessage
	h.render(w, "book", model)
}

// askPage renders the assistant page for a room
func (h *Handler) askPage(w http.ResponseWriter, r *http.Request, roomID, question, answer string) {
	if _, err := h.repo.GetRoom(r.Context(), roomID); err != nil {
		http.NotFound(w, r)
		return
	}

	viewModel := struct {
		RoomID           string
		Question         string
		Answer           string
		AssistantEnabled bool
	}{
		RoomID:           roomID,
		Question:         question,
		Answer:           answer,
		AssistantEnabled: h.assistant.Enabled(),
	}

	h.render(w, "ask", viewModel)
}

// askSubmit answers an assistant question and re-renders the ask page
func (h *Handler) askSubmit(w http.ResponseWriter, r *http.Request, roomID string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	question := r.PostFormValue("question")
	answer := h.assistant.Answer(r.Context(), question, roomID)
	h.askPage(w, r, roomID, question, answer)
}

// handleCancel cancels a booking and redirects back to the room page
func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	bookingID := r.PostFormValue("booking_id")
	roomID := r.PostFormValue("room_id")

	if _, err := h.bookingService.CancelBooking(r.Context(), bookingID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("Error cancelling booking %s: %v", utils.SanitizeLogString(bookingID), err)
			http.Error(w, "Failed to cancel booking", http.StatusInternalServerError)
			return
		}
		// Already gone; fall through to the redirect
	}

	target := "/"
	if roomID != "" {
		target = "/room/" + roomID
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleAnalytics renders the analytics page, degrading to an all-zero
// report on store failure
func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyticsService.Report(r.Context())
	if err != nil {
		log.Printf("Error building analytics report: %v", err)
		weekStart, weekEnd := service.WeekWindow(time.Now().UTC())
		report = &service.Report{WeekStart: weekStart, WeekEnd: weekEnd}
	}

	h.render(w, "analytics", report)
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
