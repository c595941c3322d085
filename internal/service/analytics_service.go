package service

import (
	"context"
	"time"

	"github.com/availhq/avail/internal/repository"
)

// UnknownCompany is the label used in per-company counts when a booking
// references a company that no longer exists.
const UnknownCompany = "Unknown"

// RoomAnalytics aggregates booking activity for one room
type RoomAnalytics struct {
	RoomID        string         `json:"room_id"`
	RoomName      string         `json:"room_name"`
	TodayCount    int            `json:"today_count"`
	WeekCount     int            `json:"week_count"`
	CompanyCounts map[string]int `json:"company_counts"`
	HourlyCounts  map[int]int    `json:"hourly_counts"`
}

// Report is the analytics view over all rooms for one reference instant
type Report struct {
	Rooms      []*RoomAnalytics `json:"rooms"`
	TotalToday int              `json:"total_today"`
	TotalWeek  int              `json:"total_week"`
	WeekStart  time.Time        `json:"week_start"`
	WeekEnd    time.Time        `json:"week_end"`
}

// AnalyticsService derives booking statistics from the repository
type AnalyticsService struct {
	repo repository.Repository
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(repo repository.Repository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// DayWindow returns the UTC day [midnight, midnight+24h) containing at
func DayWindow(at time.Time) (time.Time, time.Time) {
	at = at.UTC()
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// WeekWindow returns the UTC ISO week [Monday 00:00, next Monday 00:00)
// containing at. Sunday belongs to the week starting six days earlier.
func WeekWindow(at time.Time) (time.Time, time.Time) {
	dayStart, _ := DayWindow(at)
	offset := int(dayStart.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	start := dayStart.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// Report builds the analytics report at the current instant
func (s *AnalyticsService) Report(ctx context.Context) (*Report, error) {
	return s.ReportAt(ctx, time.Now().UTC())
}

// ReportAt builds the analytics report for the day and ISO week containing at.
// A booking counts towards a window when its start time falls inside it.
func (s *AnalyticsService) ReportAt(ctx context.Context, at time.Time) (*Report, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	companyNames, err := s.companyNames(ctx)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := DayWindow(at)
	weekStart, weekEnd := WeekWindow(at)

	report := &Report{
		Rooms:     make([]*RoomAnalytics, 0, len(rooms)),
		WeekStart: weekStart,
		WeekEnd:   weekEnd,
	}

	for _, room := range rooms {
		weekBookings, err := s.repo.BookingsInRange(ctx, room.ID, weekStart, weekEnd)
		if err != nil {
			return nil, err
		}

		analytics := &RoomAnalytics{
			RoomID:        room.ID,
			RoomName:      room.Name,
			WeekCount:     len(weekBookings),
			CompanyCounts: make(map[string]int),
			HourlyCounts:  make(map[int]int),
		}

		for _, booking := range weekBookings {
			start := booking.StartTime.UTC()
			// The hourly histogram covers the day only; week bookings
			// outside it count towards totals but not peak hours.
			if !start.Before(dayStart) && start.Before(dayEnd) {
				analytics.TodayCount++
				analytics.HourlyCounts[start.Hour()]++
			}

			name, ok := companyNames[booking.CompanyID]
			if !ok {
				name = UnknownCompany
			}
			analytics.CompanyCounts[name]++
		}

		report.Rooms = append(report.Rooms, analytics)
		report.TotalToday += analytics.TodayCount
		report.TotalWeek += analytics.WeekCount
	}

	return report, nil
}

func (s *AnalyticsService) companyNames(ctx context.Context) (map[string]string, error) {
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(companies))
	for _, company := range companies {
		names[company.ID] = company.Name
	}
	return names, nil
}
