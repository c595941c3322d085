// Package postgres provides the Postgres implementation of the repository interface
package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/availhq/avail/internal/config"
	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the booking write path maps to repository errors
const (
	exclusionViolation  = "23P01"
	foreignKeyViolation = "23503"
)

// Repository implements the repository interface with Postgres storage.
// Overlap rejection is enforced by an exclusion constraint on
// (room_id, tstzrange(start_time, end_time)), so concurrent writers cannot
// double-book a room even though the availability pre-check is advisory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Postgres repository and verifies the connection
func NewRepository(ctx context.Context, cfg config.PostgresConfig) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close closes the connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Migrate applies the SQL files in dir in lexical order.
// Statements are written to be idempotent, so re-running is safe.
func (r *Repository) Migrate(ctx context.Context, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	for _, path := range paths {
		sql, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", path, err)
		}
		if _, err := r.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", path, err)
		}
	}
	return nil
}

// SaveRoom inserts a room, or updates its display fields if it exists
func (r *Repository) SaveRoom(ctx context.Context, room *models.Room) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rooms (id, name, calendar_id, qr_code_url)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, calendar_id = EXCLUDED.calendar_id, qr_code_url = EXCLUDED.qr_code_url`,
		room.ID, room.Name, room.CalendarID, room.QRCodeURL)
	if err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(calendar_id, ''), COALESCE(qr_code_url, ''), created_at
		 FROM rooms WHERE id = $1`, id)

	var room models.Room
	if err := row.Scan(&room.ID, &room.Name, &room.CalendarID, &room.QRCodeURL, &room.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &room, nil
}

// ListRooms returns all rooms ordered by name
func (r *Repository) ListRooms(ctx context.Context) ([]*models.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(calendar_id, ''), COALESCE(qr_code_url, ''), created_at
		 FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CalendarID, &room.QRCodeURL, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	return rooms, rows.Err()
}

// SaveCompany inserts a company, or updates its name if it exists
func (r *Repository) SaveCompany(ctx context.Context, company *models.Company) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO companies (id, name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		company.ID, company.Name)
	if err != nil {
		return fmt.Errorf("failed to save company: %w", err)
	}
	return nil
}

// GetCompany retrieves a company by ID
func (r *Repository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM companies WHERE id = $1`, id)

	var company models.Company
	if err := row.Scan(&company.ID, &company.Name, &company.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &company, nil
}

// ListCompanies returns all companies ordered by name
func (r *Repository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		var company models.Company
		if err := rows.Scan(&company.ID, &company.Name, &company.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, &company)
	}
	return companies, rows.Err()
}

// CreateBooking inserts a booking. The exclusion constraint evaluates the
// overlap atomically with the insert; a violation means another booking on
// the room overlaps the interval, including one written after the caller's
// availability check.
func (r *Repository) CreateBooking(ctx context.Context, booking *models.Booking) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bookings (id, room_id, company_id, title, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		booking.ID, booking.RoomID, booking.CompanyID, booking.Title,
		booking.StartTime, booking.EndTime).Scan(&booking.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case exclusionViolation:
				return repository.ErrConflict
			case foreignKeyViolation:
				return repository.ErrNotFound
			}
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID
func (r *Repository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, room_id, company_id, title, start_time, end_time, created_at
		 FROM bookings WHERE id = $1`, id)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// DeleteBooking removes a booking by ID
func (r *Repository) DeleteBooking(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindConflicts returns the bookings on roomID overlapping [start, end)
func (r *Repository) FindConflicts(ctx context.Context, roomID string, start, end time.Time) ([]*models.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT id, room_id, company_id, title, start_time, end_time, created_at
		 FROM bookings
		 WHERE room_id = $1 AND start_time < $3 AND end_time > $2
		 ORDER BY start_time`, roomID, start, end)
}

// CurrentBooking returns the earliest booking containing the instant at,
// or nil if the room is free
func (r *Repository) CurrentBooking(ctx context.Context, roomID string, at time.Time) (*models.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, room_id, company_id, title, start_time, end_time, created_at
		 FROM bookings
		 WHERE room_id = $1 AND start_time <= $2 AND end_time > $2
		 ORDER BY start_time LIMIT 1`, roomID, at)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get current booking: %w", err)
	}
	return booking, nil
}

// NextBooking returns the earliest booking starting strictly after the
// instant after, or nil if there is none
func (r *Repository) NextBooking(ctx context.Context, roomID string, after time.Time) (*models.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, room_id, company_id, title, start_time, end_time, created_at
		 FROM bookings
		 WHERE room_id = $1 AND start_time > $2
		 ORDER BY start_time LIMIT 1`, roomID, after)

	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get next booking: %w", err)
	}
	return booking, nil
}

// BookingsInRange returns the bookings on roomID starting in [from, to)
func (r *Repository) BookingsInRange(ctx context.Context, roomID string, from, to time.Time) ([]*models.Booking, error) {
	return r.queryBookings(ctx,
		`SELECT id, room_id, company_id, title, start_time, end_time, created_at
		 FROM bookings
		 WHERE room_id = $1 AND start_time >= $2 AND start_time < $3
		 ORDER BY start_time`, roomID, from, to)
}

func (r *Repository) queryBookings(ctx context.Context, sql string, args ...any) ([]*models.Booking, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.RoomID, &b.CompanyID, &b.Title, &b.StartTime, &b.EndTime, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
