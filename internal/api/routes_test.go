package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/availhq/avail/internal/api"
	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/repository/memory"
	"github.com/availhq/avail/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds the API mux over a memory repository seeded with
// one room and one company. The assistant runs without an API client, so
// conflict explanations use the canned fallback.
func newTestServer(t *testing.T) (*http.ServeMux, repository.Repository) {
	t.Helper()

	repo := memory.NewRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "alpha", Name: "Alpha"}))
	require.NoError(t, repo.SaveCompany(ctx, &models.Company{ID: "finther", Name: "Finther"}))

	bookingService := service.NewBookingService(repo)
	analyticsService := service.NewAnalyticsService(repo)
	assistant := service.NewAssistant(nil)

	return api.SetupRoutes(repo, bookingService, analyticsService, assistant), repo
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	mux, _ := newTestServer(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := doJSON(t, mux, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "UP", decodeBody[api.HealthResponse](t, rec).Status)
	}
}

func TestCreateRoom(t *testing.T) {
	mux, _ := newTestServer(t)

	t.Run("Success", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/rooms", map[string]string{"name": "Beta"})
		require.Equal(t, http.StatusCreated, rec.Code)

		room := decodeBody[models.Room](t, rec)
		assert.NotEmpty(t, room.ID)
		assert.Equal(t, "Beta", room.Name)
	})

	t.Run("MissingName", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/rooms", map[string]string{"id": "gamma"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRoomStatusEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	t.Run("FreeRoom", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/rooms/alpha", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		status := decodeBody[models.RoomStatus](t, rec)
		assert.Equal(t, "alpha", status.RoomID)
		assert.True(t, status.Available)
	})

	t.Run("UnknownRoom", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/rooms/nope", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAvailabilityEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	start := time.Now().UTC().Add(time.Hour).Truncate(time.Minute)
	end := start.Add(30 * time.Minute)
	query := func(s, e time.Time) string {
		return fmt.Sprintf("/api/rooms/alpha/availability?start=%s&end=%s",
			s.Format(time.RFC3339), e.Format(time.RFC3339))
	}

	t.Run("EmptyRoomIsAvailable", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, query(start, end), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[map[string]any](t, rec)["available"].(bool))
	})

	rec := doJSON(t, mux, http.MethodPost, "/api/bookings", map[string]any{
		"room_id":    "alpha",
		"company_id": "finther",
		"title":      "Standup",
		"start_time": start,
		"end_time":   end,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("OverlapIsUnavailable", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, query(start.Add(15*time.Minute), end.Add(15*time.Minute)), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decodeBody[map[string]any](t, rec)["available"].(bool))
	})

	t.Run("TouchingIsAvailable", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, query(end, end.Add(30*time.Minute)), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[map[string]any](t, rec)["available"].(bool))
	})

	t.Run("InvalidInterval", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, query(end, start), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MissingParams", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/rooms/alpha/availability", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateBookingEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	start := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"room_id":    "alpha",
		"company_id": "finther",
		"title":      "Standup",
		"start_time": start,
		"end_time":   start.Add(30 * time.Minute),
	}

	rec := doJSON(t, mux, http.MethodPost, "/api/bookings", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[models.Booking](t, rec)
	assert.NotEmpty(t, created.ID)

	t.Run("ConflictReturns409WithExplanation", func(t *testing.T) {
		payload["title"] = "Retro"
		payload["start_time"] = start.Add(15 * time.Minute)
		payload["end_time"] = start.Add(45 * time.Minute)

		rec := doJSON(t, mux, http.MethodPost, "/api/bookings", payload)
		require.Equal(t, http.StatusConflict, rec.Code)

		body := decodeBody[map[string]any](t, rec)
		assert.Contains(t, body["explanation"], "Standup")
		assert.Len(t, body["conflicts"], 1)
	})

	t.Run("UnknownRoomReturns404", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/bookings", map[string]any{
			"room_id":    "nope",
			"company_id": "finther",
			"title":      "Standup",
			"start_time": start.Add(2 * time.Hour),
			"end_time":   start.Add(3 * time.Hour),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("InvalidIntervalReturns400", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodPost, "/api/bookings", map[string]any{
			"room_id":    "alpha",
			"company_id": "finther",
			"title":      "Standup",
			"start_time": start.Add(3 * time.Hour),
			"end_time":   start.Add(2 * time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("GetAndDelete", func(t *testing.T) {
		rec := doJSON(t, mux, http.MethodGet, "/api/bookings/"+created.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, mux, http.MethodDelete, "/api/bookings/"+created.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, mux, http.MethodGet, "/api/bookings/"+created.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRoomBookingsEndpoint(t *testing.T) {
	mux, repo := newTestServer(t)
	ctx := context.Background()

	start := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBooking(ctx, &models.Booking{
		ID:        "b1",
		RoomID:    "alpha",
		CompanyID: "finther",
		Title:     "Standup",
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
	}))

	path := fmt.Sprintf("/api/rooms/alpha/bookings?from=%s&to=%s",
		start.Add(-time.Hour).Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))
	rec := doJSON(t, mux, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	bookings := decodeBody[[]models.Booking](t, rec)
	require.Len(t, bookings, 1)
	assert.Equal(t, "b1", bookings[0].ID)
}

func TestCompanyEndpoints(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/companies", map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[models.Company](t, rec)
	assert.NotEmpty(t, created.ID)

	rec = doJSON(t, mux, http.MethodGet, "/api/companies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Company](t, rec), 2)

	rec = doJSON(t, mux, http.MethodGet, "/api/companies/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Acme", decodeBody[models.Company](t, rec).Name)
}

func TestAnalyticsEndpoint(t *testing.T) {
	mux, repo := newTestServer(t)
	ctx := context.Background()

	wednesday := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBooking(ctx, &models.Booking{
		ID:        "b1",
		RoomID:    "alpha",
		CompanyID: "finther",
		Title:     "Standup",
		StartTime: wednesday,
		EndTime:   wednesday.Add(30 * time.Minute),
	}))

	rec := doJSON(t, mux, http.MethodGet, "/api/analytics?at="+wednesday.Format(time.RFC3339), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	report := decodeBody[service.Report](t, rec)
	assert.Equal(t, 1, report.TotalToday)
	assert.Equal(t, 1, report.TotalWeek)
	assert.Equal(t, time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), report.WeekStart)
}

func TestAskEndpoint(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := doJSON(t, mux, http.MethodPost, "/api/ask", map[string]string{"question": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Please ask a question.", decodeBody[map[string]string](t, rec)["answer"])
}

func TestRateLimiter(t *testing.T) {
	limiter := api.NewRateLimiter(1, 2)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
