// Package redis provides a Redis/Valkey implementation of the repository interface
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/availhq/avail/internal/config"
	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/redis/go-redis/v9"
)

// Repository implements the repository interface with Redis storage.
// Entities are stored as JSON values; bookings carry a per-room index set
// so interval queries only load the bookings of one room.
//
// Unlike the Postgres backend, the overlap check on create is not atomic
// with the write: two concurrent writers can race past it. This backend is
// intended for small deployments where that window is acceptable.
type Repository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRepository creates a new Redis repository
func NewRepository(cfg config.RedisConfig) (*Repository, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}
		if opt.DB == 0 {
			opt.DB = cfg.DB
		}
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Repository{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Close closes the Redis connection
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) roomKey(id string) string {
	return fmt.Sprintf("%srooms:%s", r.keyPrefix, id)
}

func (r *Repository) companyKey(id string) string {
	return fmt.Sprintf("%scompanies:%s", r.keyPrefix, id)
}

func (r *Repository) bookingKey(id string) string {
	return fmt.Sprintf("%sbookings:%s", r.keyPrefix, id)
}

// roomBookingsKey returns the key of the set holding a room's booking IDs
func (r *Repository) roomBookingsKey(roomID string) string {
	return fmt.Sprintf("%srooms:%s:bookings", r.keyPrefix, roomID)
}

// SaveRoom saves a room to the repository
func (r *Repository) SaveRoom(ctx context.Context, room *models.Room) error {
	stored := *room
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	return r.setJSON(ctx, r.roomKey(room.ID), &stored)
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := r.getJSON(ctx, r.roomKey(id), &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms returns all rooms ordered by name
func (r *Repository) ListRooms(ctx context.Context) ([]*models.Room, error) {
	values, err := r.scanValues(ctx, r.roomKey("*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]*models.Room, 0, len(values))
	for _, data := range values {
		var room models.Room
		if err := json.Unmarshal(data, &room); err != nil {
			continue
		}
		rooms = append(rooms, &room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

// SaveCompany saves a company to the repository
func (r *Repository) SaveCompany(ctx context.Context, company *models.Company) error {
	stored := *company
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	return r.setJSON(ctx, r.companyKey(company.ID), &stored)
}

// GetCompany retrieves a company by ID
func (r *Repository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := r.getJSON(ctx, r.companyKey(id), &company); err != nil {
		return nil, err
	}
	return &company, nil
}

// ListCompanies returns all companies ordered by name
func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	values, err := r.scanValues(ctx, r.companyKey("*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	companies := make([]*models.Company, 0, len(values))
	for _, data := range values {
		var company models.Company
		if err := json.Unmarshal(data, &company); err != nil {
			continue
		}
		companies = append(companies, &company)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}

// CreateBooking saves a booking after re-checking for overlaps on the room
func (r *Repository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	existing, err := r.roomBookings(ctx, booking.RoomID)
	if err != nil {
		return err
	}
	for _, b := range existing {
		if b.Overlaps(booking.StartTime, booking.EndTime) {
			return repository.ErrConflict
		}
	}

	stored := *booking
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}

	// Write the booking and index it on the room in one roundtrip
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.bookingKey(booking.ID), data, 0)
	pipe.SAdd(ctx, r.roomBookingsKey(booking.RoomID), booking.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID
func (r *Repository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.getJSON(ctx, r.bookingKey(id), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// DeleteBooking removes a booking and its room index entry
func (r *Repository) DeleteBooking(ctx context.Context, id string) error {
	booking, err := r.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.bookingKey(id))
	pipe.SRem(ctx, r.roomBookingsKey(booking.RoomID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return nil
}

// FindConflicts returns the bookings on roomID overlapping [start, end)
func (r *Repository) FindConflicts(ctx context.Context, roomID string, start, end time.Time) ([]*models.Booking, error) {
	return r.filterRoomBookings(ctx, roomID, func(b *models.Booking) bool {
		return b.Overlaps(start, end)
	})
}

// CurrentBooking returns the earliest booking containing the instant at,
// or nil if the room is free
func (r *Repository) CurrentBooking(ctx context.Context, roomID string, at time.Time) (*models.Booking, error) {
	matches, err := r.filterRoomBookings(ctx, roomID, func(b *models.Booking) bool {
		return b.Contains(at)
	})
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

// NextBooking returns the earliest booking starting strictly after the
// instant after, or nil if there is none
func (r *Repository) NextBooking(ctx context.Context, roomID string, after time.Time) (*models.Booking, error) {
	matches, err := r.filterRoomBookings(ctx, roomID, func(b *models.Booking) bool {
		return b.StartTime.After(after)
	})
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

// BookingsInRange returns the bookings on roomID starting in [from, to)
func (r *Repository) BookingsInRange(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error) {
	return r.filterRoomBookings(ctx, roomID, func(b *models.Booking) bool {
		return !b.StartTime.Before(from) && b.StartTime.Before(to)
	})
}

// setJSON marshals v and stores it under key
func (r *Repository) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save value: %w", err)
	}
	return nil
}

// getJSON loads key and unmarshals it into v, mapping redis.Nil to ErrNotFound
func (r *Repository) getJSON(ctx context.Context, key string, v any) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to get value: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

// scanValues returns the raw values of all string keys matching pattern.
// Non-string keys (index sets) come back nil from MGET and are skipped.
func (r *Repository) scanValues(ctx context.Context, pattern string) ([][]byte, error) {
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, []byte(s))
	}
	return out, nil
}

// roomBookings loads all bookings indexed on a room
func (r *Repository) roomBookings(ctx context.Context, roomID string) ([]*models.Booking, error) {
	ids, err := r.client.SMembers(ctx, r.roomBookingsKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read room booking index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.bookingKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load room bookings: %w", err)
	}

	bookings := make([]*models.Booking, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var booking models.Booking
		if err := json.Unmarshal([]byte(s), &booking); err != nil {
			continue
		}
		bookings = append(bookings, &booking)
	}
	return bookings, nil
}

// filterRoomBookings returns the room's bookings matching the predicate,
// ordered by start time
func (r *Repository) filterRoomBookings(ctx context.Context, roomID string, match func(*models.Booking) bool) ([]*models.Booking, error) {
	bookings, err := r.roomBookings(ctx, roomID)
	if err != nil {
		return nil, err
	}

	matches := make([]*models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if match(b) {
			matches = append(matches, b)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].StartTime.Before(matches[j].StartTime)
	})
	return matches, nil
}
