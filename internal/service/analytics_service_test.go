package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository/memory"
	"github.com/availhq/avail/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	start, end := service.DayWindow(time.Date(2025, 6, 11, 14, 37, 12, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), end)
}

func TestWeekWindow(t *testing.T) {
	tests := []struct {
		name      string
		at        time.Time
		wantStart time.Time
	}{
		{
			"Wednesday",
			time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			"MondayMidnight",
			time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			"SundayBelongsToPrecedingMonday",
			time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC),
			time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := service.WeekWindow(tc.at)
			assert.Equal(t, tc.wantStart, start)
			assert.Equal(t, tc.wantStart.AddDate(0, 0, 7), end)
		})
	}
}

func TestReportAt(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "alpha", Name: "Alpha"}))
	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "beta", Name: "Beta"}))
	require.NoError(t, repo.SaveCompany(ctx, &models.Company{ID: "finther", Name: "Finther"}))

	// Wednesday 2025-06-11; the ISO week runs Mon 06-09 through Sun 06-15
	wednesday := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)

	seed := func(id, roomID, companyID string, start time.Time, minutes int) {
		t.Helper()
		require.NoError(t, repo.CreateBooking(ctx, &models.Booking{
			ID:        id,
			RoomID:    roomID,
			CompanyID: companyID,
			Title:     "Meeting " + id,
			StartTime: start,
			EndTime:   start.Add(time.Duration(minutes) * time.Minute),
		}))
	}

	seed("b1", "alpha", "finther", wednesday.Add(9*time.Hour), 30)
	seed("b2", "alpha", "finther", wednesday.Add(9*time.Hour+30*time.Minute), 30)
	seed("b3", "alpha", "ghost", wednesday.Add(14*time.Hour), 60)
	seed("b4", "alpha", "finther", monday.Add(9*time.Hour), 30)
	// Outside the week entirely
	seed("b5", "alpha", "finther", monday.AddDate(0, 0, 7).Add(9*time.Hour), 30)
	seed("b6", "beta", "finther", wednesday.Add(11*time.Hour), 30)

	report, err := service.NewAnalyticsService(repo).ReportAt(ctx, wednesday.Add(15*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, monday, report.WeekStart)
	assert.Equal(t, monday.AddDate(0, 0, 7), report.WeekEnd)
	assert.Equal(t, 4, report.TotalToday)
	assert.Equal(t, 5, report.TotalWeek)

	require.Len(t, report.Rooms, 2)
	alpha := report.Rooms[0]
	assert.Equal(t, "alpha", alpha.RoomID)
	assert.Equal(t, 3, alpha.TodayCount)
	assert.Equal(t, 4, alpha.WeekCount)
	// Monday's 09:00 booking counts towards the week but must not show
	// up in Wednesday's hourly histogram
	assert.Equal(t, map[int]int{9: 2, 14: 1}, alpha.HourlyCounts)
	assert.Equal(t, map[string]int{"Finther": 3, service.UnknownCompany: 1}, alpha.CompanyCounts)

	beta := report.Rooms[1]
	assert.Equal(t, 1, beta.TodayCount)
	assert.Equal(t, 1, beta.WeekCount)
}

func TestReportAtHourlyCountsCoverDayOnly(t *testing.T) {
	repo := memory.NewRepository()
	ctx := context.Background()
	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "alpha", Name: "Alpha"}))
	require.NoError(t, repo.SaveCompany(ctx, &models.Company{ID: "finther", Name: "Finther"}))

	// Monday 09:00 booking, report taken on Wednesday afternoon
	monday := time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateBooking(ctx, &models.Booking{
		ID:        "b1",
		RoomID:    "alpha",
		CompanyID: "finther",
		Title:     "Standup",
		StartTime: monday,
		EndTime:   monday.Add(30 * time.Minute),
	}))

	wednesday := time.Date(2025, 6, 11, 15, 0, 0, 0, time.UTC)
	report, err := service.NewAnalyticsService(repo).ReportAt(ctx, wednesday)
	require.NoError(t, err)

	require.Len(t, report.Rooms, 1)
	alpha := report.Rooms[0]
	assert.Equal(t, 1, alpha.WeekCount)
	assert.Equal(t, 0, alpha.TodayCount)
	assert.Empty(t, alpha.HourlyCounts)
}

func TestReportAtEmpty(t *testing.T) {
	repo := memory.NewRepository()
	report, err := service.NewAnalyticsService(repo).ReportAt(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, report.Rooms)
	assert.Zero(t, report.TotalToday)
	assert.Zero(t, report.TotalWeek)
}
