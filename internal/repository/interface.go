// Package repository defines the interface for data storage
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/availhq/avail/internal/models"
)

// Common errors shared by all backends
var (
	// ErrNotFound is returned when a requested entity does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a booking write would overlap an
	// existing booking on the same room
	ErrConflict = errors.New("booking overlaps an existing booking")
)

// Repository defines the interface for storing and retrieving rooms,
// companies and bookings
type Repository interface {
	// Room operations
	SaveRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)

	// Company operations
	SaveCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)

	// Booking operations. CreateBooking must reject a booking whose
	// interval overlaps an existing booking on the same room with
	// ErrConflict, evaluated atomically at write time.
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id string) error

	// FindConflicts returns the bookings on roomID overlapping the
	// half-open interval [start, end), ordered by start time.
	FindConflicts(ctx context.Context, roomID string, start, end time.Time) ([]*models.Booking, error)

	// CurrentBooking returns the earliest booking whose interval contains
	// the instant at, or nil if the room is free at that instant.
	CurrentBooking(ctx context.Context, roomID string, at time.Time) (*models.Booking, error)

	// NextBooking returns the earliest booking starting strictly after
	// the instant after, or nil if there is none.
	NextBooking(ctx context.Context, roomID string, after time.Time) (*models.Booking, error)

	// BookingsInRange returns the bookings on roomID whose start time
	// falls in [from, to), ordered by start time.
	BookingsInRange(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error)
}
