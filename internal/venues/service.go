package venues

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuepass/internal/shared/constants"
	"venuepass/pkg/cache"
	"venuepass/pkg/logger"
	"venuepass/pkg/money"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrVenueExists = errors.New("venue with this name already exists")

type Service interface {
	CreateVenue(ctx context.Context, req CreateVenueRequest) (*Venue, error)
	GetVenue(ctx context.Context, id uuid.UUID) (*Venue, error)
	ListVenues(ctx context.Context) ([]Venue, error)
	UpdateCapacity(ctx context.Context, id uuid.UUID, capacity int) (*Venue, error)
}

type service struct {
	repo     Repository
	cache    cache.Service
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewService creates a venue service. redisClient may be nil, in which case
// lookups always hit the repository.
func NewService(repo Repository, redisClient *redis.Client, cacheTTL time.Duration) Service {
	if cacheTTL <= 0 {
		cacheTTL = constants.TTL_VENUE_DETAIL
	}
	return &service{
		repo:     repo,
		cache:    cache.NewService(redisClient),
		cacheTTL: cacheTTL,
		log:      logger.GetDefault(),
	}
}

func (s *service) CreateVenue(ctx context.Context, req CreateVenueRequest) (*Venue, error) {
	_, err := s.repo.GetByName(ctx, req.Name)
	if err == nil {
		return nil, ErrVenueExists
	}
	if !errors.Is(err, ErrVenueNotFound) {
		return nil, fmt.Errorf("failed to check venue name: %w", err)
	}

	basePrice, err := money.ParseAmount(req.BasePrice)
	if err != nil {
		return nil, err
	}
	if basePrice.IsNegative() {
		return nil, fmt.Errorf("base price must not be negative")
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	venue := &Venue{
		ID:        uuid.New(),
		Name:      req.Name,
		Capacity:  req.Capacity,
		Timezone:  timezone,
		BasePrice: basePrice,
	}
	if err := s.repo.Create(ctx, venue); err != nil {
		return nil, fmt.Errorf("failed to create venue: %w", err)
	}

	if err := s.cache.Delete(ctx, constants.CACHE_KEY_VENUES_LIST); err != nil {
		s.log.Warn("failed to invalidate venue list cache", "error", err)
	}
	return venue, nil
}

func (s *service) GetVenue(ctx context.Context, id uuid.UUID) (*Venue, error) {
	var venue Venue
	err := s.cache.GetOrSet(ctx, constants.BuildVenueDetailKey(id.String()), s.cacheTTL, &venue, func() (interface{}, error) {
		return s.repo.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (s *service) ListVenues(ctx context.Context) ([]Venue, error) {
	var venues []Venue
	err := s.cache.GetOrSet(ctx, constants.CACHE_KEY_VENUES_LIST, constants.TTL_VENUES_LIST, &venues, func() (interface{}, error) {
		list, err := s.repo.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list venues: %w", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return venues, nil
}

func (s *service) UpdateCapacity(ctx context.Context, id uuid.UUID, capacity int) (*Venue, error) {
	if err := s.repo.UpdateCapacity(ctx, id, capacity); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, constants.BuildVenueDetailKey(id.String()), constants.CACHE_KEY_VENUES_LIST); err != nil {
		s.log.Warn("failed to invalidate venue cache", "venue_id", id.String(), "error", err)
	}
	return s.repo.GetByID(ctx, id)
}
