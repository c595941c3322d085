// Package memory provides an in-memory implementation of the repository interface
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
)

// Repository implements the repository interface with in-memory storage.
// It is used in tests and for local development without external services.
type Repository struct {
	rooms     map[string]*models.Room
	companies map[string]*models.Company
	bookings  map[string]*models.Booking
	mu        sync.RWMutex
}

// NewRepository creates a new in-memory repository
func NewRepository() *Repository {
	return &Repository{
		rooms:     make(map[string]*models.Room),
		companies: make(map[string]*models.Company),
		bookings:  make(map[string]*models.Booking),
	}
}

// SaveRoom stores a room
func (r *Repository) SaveRoom(ctx context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *room
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.rooms[room.ID] = &stored
	return nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

// ListRooms returns all rooms ordered by name
func (r *Repository) ListRooms(ctx context.Context) ([]*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		copied := *room
		rooms = append(rooms, &copied)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// SaveCompany stores a company
func (r *Repository) SaveCompany(ctx context.Context, company *models.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *company
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.companies[company.ID] = &stored
	return nil
}

// GetCompany retrieves a company by ID
func (r *Repository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	company, ok := r.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *company
	return &copied, nil
}

// ListCompanies returns all companies ordered by name
func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	companies := make([]*models.Company, 0, len(r.companies))
	for _, company := range r.companies {
		copied := *company
		companies = append(companies, &copied)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}

// CreateBooking stores a booking. The overlap check and the insert happen
// under the same write lock, so two concurrent writers cannot both pass
// the check for the same room.
func (r *Repository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.bookings {
		if existing.RoomID == booking.RoomID && existing.Overlaps(booking.StartTime, booking.EndTime) {
			return repository.ErrConflict
		}
	}

	stored := *booking
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	r.bookings[booking.ID] = &stored
	return nil
}

// GetBooking retrieves a booking by ID
func (r *Repository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *booking
	return &copied, nil
}

// DeleteBooking removes a booking by ID
func (r *Repository) DeleteBooking(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.bookings, id)
	return nil
}

// FindConflicts returns the bookings on roomID overlapping [start, end)
func (r *Repository) FindConflicts(ctx context.Context, roomID string, start, end time.Time) ([]*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(roomID, func(b *models.Booking) bool {
		return b.Overlaps(start, end)
	}), nil
}

// CurrentBooking returns the earliest booking containing the instant at,
// or nil if the room is free
func (r *Repository) CurrentBooking(ctx context.Context, roomID string, at time.Time) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.collect(roomID, func(b *models.Booking) bool {
		return b.Contains(at)
	})
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// NextBooking returns the earliest booking starting strictly after the
// instant after, or nil if there is none
func (r *Repository) NextBooking(ctx context.Context, roomID string, after time.Time) (*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := r.collect(roomID, func(b *models.Booking) bool {
		return b.StartTime.After(after)
	})
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// BookingsInRange returns the bookings on roomID starting in [from, to)
func (r *Repository) BookingsInRange(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(roomID, func(b *models.Booking) bool {
		return !b.StartTime.Before(from) && b.StartTime.Before(to)
	}), nil
}

// collect returns copies of the room's bookings matching the predicate,
// ordered by start time. Callers must hold at least a read lock.
func (r *Repository) collect(roomID string, match func(*models.Booking) bool) []*models.Booking {
	matches := make([]*models.Booking, 0)
	for _, b := range r.bookings {
		if b.RoomID == roomID && match(b) {
			copied := *b
			matches = append(matches, &copied)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartTime.Before(matches[j].StartTime)
	})
	return matches
}
