// Package redis_test provides tests for the Redis repository
package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/availhq/avail/internal/config"
	"github.com/availhq/avail/internal/models"
	"github.com/availhq/avail/internal/repository"
	"github.com/availhq/avail/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Repository, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.RedisConfig{
		Host:      mr.Host(),
		Port:      mr.Port(),
		KeyPrefix: "test:",
	}

	repo, err := redis.NewRepository(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo, mr
}

func at(hour, min int) time.Time {
	return time.Date(2025, 6, 11, hour, min, 0, 0, time.UTC)
}

// TestRedisWithURI tests connection with URI format
func TestRedisWithURI(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := config.RedisConfig{
		URI:       fmt.Sprintf("redis://%s:%s", mr.Host(), mr.Port()),
		KeyPrefix: "test:",
	}

	repo, err := redis.NewRepository(cfg)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "alpha", Name: "Alpha Room"}))

	room, err := repo.GetRoom(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Room", room.Name)
}

func TestRoomAndCompanyStorage(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "bravo", Name: "Bravo Room"}))
	require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "alpha", Name: "Alpha Room"}))
	require.NoError(t, repo.SaveCompany(ctx, &models.Company{ID: "finther", Name: "Finther"}))

	t.Run("ListRoomsOrderedByName", func(t *testing.T) {
		rooms, err := repo.ListRooms(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "Alpha Room", rooms[0].Name)
		assert.Equal(t, "Bravo Room", rooms[1].Name)
	})

	t.Run("GetMissingRoom", func(t *testing.T) {
		_, err := repo.GetRoom(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("ListCompanies", func(t *testing.T) {
		companies, err := repo.ListCompanies(ctx)
		require.NoError(t, err)
		require.Len(t, companies, 1)
		assert.Equal(t, "Finther", companies[0].Name)
	})
}

func TestBookingStorage(t *testing.T) {
	repo, _ := setupTestRedis(t)
	ctx := context.Background()

	booking := &models.Booking{
		ID:        "b1",
		RoomID:    "alpha",
		CompanyID: "finther",
		Title:     "Standup",
		StartTime: at(9, 0),
		EndTime:   at(9, 30),
	}
	require.NoError(t, repo.CreateBooking(ctx, booking))

	t.Run("GetBooking", func(t *testing.T) {
		got, err := repo.GetBooking(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, "Standup", got.Title)
		assert.True(t, got.StartTime.Equal(at(9, 0)))
	})

	t.Run("OverlappingCreateRejected", func(t *testing.T) {
		err := repo.CreateBooking(ctx, &models.Booking{
			ID: "b2", RoomID: "alpha", CompanyID: "finther", Title: "Clash",
			StartTime: at(9, 15), EndTime: at(9, 45),
		})
		assert.ErrorIs(t, err, repository.ErrConflict)
	})

	t.Run("TouchingCreateAllowed", func(t *testing.T) {
		err := repo.CreateBooking(ctx, &models.Booking{
			ID: "b3", RoomID: "alpha", CompanyID: "finther", Title: "Back to back",
			StartTime: at(9, 30), EndTime: at(10, 0),
		})
		assert.NoError(t, err)
	})

	t.Run("IntervalQueries", func(t *testing.T) {
		current, err := repo.CurrentBooking(ctx, "alpha", at(9, 15))
		require.NoError(t, err)
		require.NotNil(t, current)
		assert.Equal(t, "b1", current.ID)

		next, err := repo.NextBooking(ctx, "alpha", at(9, 15))
		require.NoError(t, err)
		require.NotNil(t, next)
		assert.Equal(t, "b3", next.ID)

		inRange, err := repo.BookingsInRange(ctx, "alpha", at(0, 0), at(23, 59))
		require.NoError(t, err)
		assert.Len(t, inRange, 2)
	})

	t.Run("BookingIndexDoesNotCorruptRoomListing", func(t *testing.T) {
		// The per-room index set lives under the rooms: prefix; listing
		// rooms must skip it.
		require.NoError(t, repo.SaveRoom(ctx, &models.Room{ID: "alpha", Name: "Alpha Room"}))
		rooms, err := repo.ListRooms(ctx)
		require.NoError(t, err)
		assert.Len(t, rooms, 1)
	})

	t.Run("DeleteBooking", func(t *testing.T) {
		require.NoError(t, repo.DeleteBooking(ctx, "b1"))
		_, err := repo.GetBooking(ctx, "b1")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		// Interval it occupied is free again
		conflicts, err := repo.FindConflicts(ctx, "alpha", at(9, 0), at(9, 30))
		require.NoError(t, err)
		assert.Empty(t, conflicts)

		assert.ErrorIs(t, repo.DeleteBooking(ctx, "b1"), repository.ErrNotFound)
	})
}
