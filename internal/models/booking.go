package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBooking is returned by Validate when a booking fails a
// basic field check, before anything is written to the store.
var ErrInvalidBooking = errors.New("invalid booking")

// Booking represents a reserved time interval on a room for a company.
// Intervals are half-open: [StartTime, EndTime).
type Booking struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	CompanyID string    `json:"company_id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// Overlap reports whether the half-open intervals [startA, endA) and
// [startB, endB) share at least one instant. Touching endpoints do not
// count as overlap.
func Overlap(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}

// Overlaps reports whether the booking's interval overlaps [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return Overlap(b.StartTime, b.EndTime, start, end)
}

// Contains reports whether the booking's interval contains the instant t.
func (b *Booking) Contains(t time.Time) bool {
	return !b.StartTime.After(t) && b.EndTime.After(t)
}

// Validate checks the booking's fields before it is persisted.
func (b *Booking) Validate() error {
	if b.RoomID == "" {
		return fmt.Errorf("%w: room id is required", ErrInvalidBooking)
	}
	if b.CompanyID == "" {
		return fmt.Errorf("%w: company id is required", ErrInvalidBooking)
	}
	if b.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidBooking)
	}
	if b.StartTime.IsZero() || b.EndTime.IsZero() {
		return fmt.Errorf("%w: start and end times are required", ErrInvalidBooking)
	}
	if !b.StartTime.Before(b.EndTime) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidBooking)
	}
	return nil
}
