// Package service provides the business logic on top of the repository
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/availhq/avail/internal/kafka"
	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/utils"
	"github.com/google/uuid"
)

// BookingUpdateCallback is a function type for booking update callbacks
type BookingUpdateCallback func(*models.Booking)

// EventProducer publishes booking lifecycle events. A nil producer
// disables publishing.
type EventProducer interface {
	Publish(ctx context.Context, event kafka.BookingEvent) error
}

// ConflictError is returned when a requested interval overlaps existing
// bookings. It carries the conflicting bookings so callers can explain
// the conflict or offer alternative times.
type ConflictError struct {
	Conflicts []*models.Booking
}

func (e *ConflictError) Error() string {
	return "requested interval overlaps existing bookings"
}

// Unwrap lets errors.Is match repository.ErrConflict
func (e *ConflictError) Unwrap() error {
	return repository.ErrConflict
}

// BookingService provides business logic for availability checks, booking
// writes and room status
type BookingService struct {
	repo            repository.Repository
	producer        EventProducer
	updateCallbacks []BookingUpdateCallback
}

// BookingServiceOption configures a BookingService
type BookingServiceOption func(*BookingService)

// WithEventProducer enables booking event publishing
func WithEventProducer(producer EventProducer) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
	}
}

// NewBookingService creates a new BookingService with the given repository
func NewBookingService(repo repository.Repository, opts ...BookingServiceOption) *BookingService {
	s := &BookingService{
		repo:            repo,
		updateCallbacks: make([]BookingUpdateCallback, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUpdateCallback registers a callback to be called when a booking
// is created or cancelled
func (s *BookingService) RegisterUpdateCallback(callback BookingUpdateCallback) {
	s.updateCallbacks = append(s.updateCallbacks, callback)
}

func (s *BookingService) notifyUpdate(booking *models.Booking) {
	for _, callback := range s.updateCallbacks {
		callback(booking)
	}
}

// CreateBookingInput carries the fields for a new booking
type CreateBookingInput struct {
	RoomID    string
	CompanyID string
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

// CheckAvailability reports whether the room has no booking overlapping
// [start, end). Store errors propagate; callers must treat failure as
// request failure, never as "available".
func (s *BookingService) CheckAvailability(ctx context.Context, roomID string, start, end time.Time) (bool, error) {
	conflicts, err := s.repo.FindConflicts(ctx, roomID, start, end)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// CreateBooking validates the input, checks availability and persists a
// new booking. The pre-check is advisory; the repository enforces overlap
// rejection atomically at write time, so a concurrent writer that wins the
// race still surfaces as a ConflictError here.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	booking := &models.Booking{
		ID:        uuid.NewString(),
		RoomID:    input.RoomID,
		CompanyID: input.CompanyID,
		Title:     input.Title,
		StartTime: input.StartTime.UTC(),
		EndTime:   input.EndTime.UTC(),
	}
	if err := booking.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetRoom(ctx, booking.RoomID); err != nil {
		return nil, fmt.Errorf("room %s: %w", booking.RoomID, err)
	}
	if _, err := s.repo.GetCompany(ctx, booking.CompanyID); err != nil {
		return nil, fmt.Errorf("company %s: %w", booking.CompanyID, err)
	}

	conflicts, err := s.repo.FindConflicts(ctx, booking.RoomID, booking.StartTime, booking.EndTime)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	if err := s.repo.CreateBooking(ctx, booking); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost the race to a concurrent writer; re-query so the
			// caller can still explain the conflict.
			conflicts, _ := s.repo.FindConflicts(ctx, booking.RoomID, booking.StartTime, booking.EndTime)
			return nil, &ConflictError{Conflicts: conflicts}
		}
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCreated, booking)
	s.notifyUpdate(booking)
	return booking, nil
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

// CancelBooking deletes a booking and returns the deleted record
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCancelled, booking)
	s.notifyUpdate(booking)
	return booking, nil
}

// RoomBookings returns the bookings on a room starting in [from, to)
func (s *BookingService) RoomBookings(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error) {
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.repo.BookingsInRange(ctx, roomID, from, to)
}

// RoomStatus returns the room's derived status at the current instant
func (s *BookingService) RoomStatus(ctx context.Context, roomID string) (*models.RoomStatus, error) {
	return s.RoomStatusAt(ctx, roomID, time.Now().UTC())
}

// RoomStatusAt returns the room's derived status at the instant at:
// the booking covering the instant, the next booking after it, minutes
// until the room frees up and the booking count for the instant's day.
func (s *BookingService) RoomStatusAt(ctx context.Context, roomID string, at time.Time) (*models.RoomStatus, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.CurrentBooking(ctx, roomID, at)
	if err != nil {
		return nil, err
	}
	next, err := s.repo.NextBooking(ctx, roomID, at)
	if err != nil {
		return nil, err
	}

	minutesUntilFree := 0
	if current != nil {
		minutesUntilFree = int(current.EndTime.Sub(at) / time.Minute)
		if minutesUntilFree < 0 {
			minutesUntilFree = 0
		}
	}

	dayStart, dayEnd := DayWindow(at)
	todays, err := s.repo.BookingsInRange(ctx, roomID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	return &models.RoomStatus{
		RoomID:           room.ID,
		RoomName:         room.Name,
		Available:        current == nil,
		CurrentBooking:   current,
		NextBooking:      next,
		MinutesUntilFree: minutesUntilFree,
		TodayCount:       len(todays),
	}, nil
}

// RoomStatuses returns the derived status of every room at the current instant
func (s *BookingService) RoomStatuses(ctx context.Context) ([]*models.RoomStatus, error) {
	return s.RoomStatusesAt(ctx, time.Now().UTC())
}

// RoomStatusesAt returns the derived status of every room at the instant at
func (s *BookingService) RoomStatusesAt(ctx context.Context, at time.Time) ([]*models.RoomStatus, error) {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]*models.RoomStatus, 0, len(rooms))
	for _, room := range rooms {
		status, err := s.RoomStatusAt(ctx, room.ID, at)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// publish sends a booking event if a producer is configured. Publishing
// failures are logged, not propagated: the booking itself succeeded.
func (s *BookingService) publish(ctx context.Context, eventType string, booking *models.Booking) {
	if s.producer == nil {
		return
	}
	err := s.producer.Publish(ctx, kafka.BookingEvent{
		Type:      eventType,
		BookingID: booking.ID,
		RoomID:    booking.RoomID,
		CompanyID: booking.CompanyID,
		Title:     booking.Title,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
	})
	if err != nil {
		log.Printf("Failed to publish %s event for booking %s: %v",
			eventType, utils.SanitizeLogString(booking.ID), err)
	}
}
