package api

import (
	"log"
	"net/http"
	"time"

	"github.com/availhq/avail/internal/service"
)

// AnalyticsHandler handles HTTP requests for booking analytics
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// ServeHTTP handles GET /api/analytics. The optional at query parameter
// (RFC 3339) selects the reference instant; it defaults to now.
func (h *AnalyticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	at := time.Now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid 'at' timestamp, want RFC 3339")
			return
		}
		at = parsed
	}

	report, err := h.analyticsService.ReportAt(r.Context(), at)
	if err != nil {
		log.Printf("Error building analytics report: %v", err)
		writeError(w, http.StatusInternalServerError, "Error building analytics report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
