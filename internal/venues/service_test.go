package venues

import (
	"context"
	"testing"
	"time"

	"venuepass/internal/shared/constants"
	"venuepass/pkg/money"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	CreateFunc         func(ctx context.Context, venue *Venue) error
	GetByIDFunc        func(ctx context.Context, id uuid.UUID) (*Venue, error)
	GetByNameFunc      func(ctx context.Context, name string) (*Venue, error)
	ListFunc           func(ctx context.Context) ([]Venue, error)
	UpdateCapacityFunc func(ctx context.Context, id uuid.UUID, capacity int) error
}

func (m *mockRepository) Create(ctx context.Context, venue *Venue) error {
	return m.CreateFunc(ctx, venue)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Venue, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockRepository) GetByName(ctx context.Context, name string) (*Venue, error) {
	return m.GetByNameFunc(ctx, name)
}

func (m *mockRepository) List(ctx context.Context) ([]Venue, error) {
	return m.ListFunc(ctx)
}

func (m *mockRepository) UpdateCapacity(ctx context.Context, id uuid.UUID, capacity int) error {
	return m.UpdateCapacityFunc(ctx, id, capacity)
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestGetVenue_CachesRepositoryResult(t *testing.T) {
	client, mr := newRedis(t)
	venue := &Venue{ID: uuid.New(), Name: "Harbour Hall", Capacity: 400, Timezone: "Europe/London", BasePrice: money.FromUnits(150)}

	lookups := 0
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*Venue, error) {
			lookups++
			return venue, nil
		},
	}
	svc := NewService(repo, client, time.Hour)

	first, err := svc.GetVenue(context.Background(), venue.ID)
	require.NoError(t, err)
	second, err := svc.GetVenue(context.Background(), venue.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, lookups)
	assert.Equal(t, venue.Capacity, second.Capacity)
	assert.Equal(t, venue.BasePrice, first.BasePrice)
	assert.Equal(t, "Europe/London", second.Location().String())
	assert.True(t, mr.Exists(constants.BuildVenueDetailKey(venue.ID.String())))
}

func TestGetVenue_NotFoundIsNotCached(t *testing.T) {
	client, mr := newRedis(t)
	id := uuid.New()
	svc := NewService(&mockRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*Venue, error) {
			return nil, ErrVenueNotFound
		},
	}, client, time.Hour)

	_, err := svc.GetVenue(context.Background(), id)
	assert.ErrorIs(t, err, ErrVenueNotFound)
	assert.False(t, mr.Exists(constants.BuildVenueDetailKey(id.String())))
}

func TestUpdateCapacity_InvalidatesCache(t *testing.T) {
	client, mr := newRedis(t)
	venue := &Venue{ID: uuid.New(), Name: "Rooftop", Capacity: 100}
	repo := &mockRepository{
		GetByIDFunc: func(ctx context.Context, id uuid.UUID) (*Venue, error) {
			v := *venue
			return &v, nil
		},
		UpdateCapacityFunc: func(ctx context.Context, id uuid.UUID, capacity int) error {
			venue.Capacity = capacity
			return nil
		},
	}
	svc := NewService(repo, client, time.Hour)

	_, err := svc.GetVenue(context.Background(), venue.ID)
	require.NoError(t, err)

	updated, err := svc.UpdateCapacity(context.Background(), venue.ID, 150)
	require.NoError(t, err)
	assert.Equal(t, 150, updated.Capacity)
	assert.False(t, mr.Exists(constants.BuildVenueDetailKey(venue.ID.String())))

	got, err := svc.GetVenue(context.Background(), venue.ID)
	require.NoError(t, err)
	assert.Equal(t, 150, got.Capacity)
}

func TestCreateVenue(t *testing.T) {
	var created *Venue
	repo := &mockRepository{
		GetByNameFunc: func(ctx context.Context, name string) (*Venue, error) {
			if name == "Taken" {
				return &Venue{Name: name}, nil
			}
			return nil, ErrVenueNotFound
		},
		CreateFunc: func(ctx context.Context, venue *Venue) error {
			created = venue
			return nil
		},
	}
	svc := NewService(repo, nil, time.Hour)

	t.Run("defaults timezone to UTC", func(t *testing.T) {
		v, err := svc.CreateVenue(context.Background(), CreateVenueRequest{Name: "Basement", Capacity: 60, BasePrice: "40.50"})
		require.NoError(t, err)
		assert.Equal(t, "UTC", v.Timezone)
		assert.Equal(t, money.MustParseAmount("40.50"), created.BasePrice)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.CreateVenue(context.Background(), CreateVenueRequest{Name: "Taken", Capacity: 60, BasePrice: "40"})
		assert.ErrorIs(t, err, ErrVenueExists)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		_, err := svc.CreateVenue(context.Background(), CreateVenueRequest{Name: "Nowhere", Capacity: 60, BasePrice: "40", Timezone: "Mars/Olympus"})
		assert.Error(t, err)
	})
}

func TestLocalDay(t *testing.T) {
	v := &Venue{Timezone: "Asia/Tokyo"}
	// 2026-06-01 20:00 UTC is already June 2nd in Tokyo
	start, end := v.LocalDay(time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, 2, start.Day())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	assert.Equal(t, time.UTC, (&Venue{Timezone: "bogus"}).Location())
}
