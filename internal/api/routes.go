package api

import (
	"net/http"

	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/service"
	"golang.org/x/time/rate"
)

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(repo repository.Repository, bookingService *service.BookingService, analyticsService *service.AnalyticsService, assistant *service.Assistant) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.HandleFunc("/health/ready", HealthReadyHandler)

	// Room management and status endpoints
	roomHandler := NewRoomHandler(repo, bookingService)
	mux.Handle("/api/rooms", roomHandler)
	mux.Handle("/api/rooms/", roomHandler)

	// Booking endpoints
	bookingHandler := NewBookingHandler(bookingService, assistant)
	mux.Handle("/api/bookings", bookingHandler)
	mux.Handle("/api/bookings/", bookingHandler)

	// Company endpoints
	companyHandler := NewCompanyHandler(repo)
	mux.Handle("/api/companies", companyHandler)
	mux.Handle("/api/companies/", companyHandler)

	// Analytics endpoint
	mux.Handle("/api/analytics", NewAnalyticsHandler(analyticsService))

	// Assistant endpoint, rate limited since every request may reach the
	// upstream chat API
	askLimiter := NewRateLimiter(rate.Limit(1), 5)
	mux.Handle("/api/ask", askLimiter.Middleware(NewAskHandler(assistant)))

	return mux
}
