package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"venuepass/internal/venues"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, reservation *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error)

	// Concurrency-safe hold placement
	CreateWithCapacityCheck(ctx context.Context, reservation *Reservation, from, to time.Time) (booked int, err error)
	CompareAndSetState(ctx context.Context, id uuid.UUID, from, to State, at time.Time) error

	// Occupancy and queue queries
	BookedBetween(ctx context.Context, venueID uuid.UUID, from, to time.Time) (int, error)
	OldestWaitlisted(ctx context.Context, venueID uuid.UUID, from, to time.Time) (*Reservation, error)
	ListOverdueHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, reservation *Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).First(&reservation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Reservation, error) {
	if limit <= 0 {
		limit = 20
	}

	var reservations []Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC, created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reservations).Error
	return reservations, err
}

// CreateWithCapacityCheck inserts the reservation while holding a row lock on
// the venue. A party that does not fit is stored as waitlisted instead. The
// returned count is the occupancy before the insert.
func (r *repository) CreateWithCapacityCheck(ctx context.Context, reservation *Reservation, from, to time.Time) (int, error) {
	var booked int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var venue struct {
			ID       uuid.UUID `gorm:"column:id"`
			Capacity int       `gorm:"column:capacity"`
		}
		err := tx.Table("venues").
			Select("id, capacity").
			Where("id = ?", reservation.VenueID).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&venue).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return venues.ErrVenueNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock venue: %w", err)
		}

		booked, err = bookedBetween(tx, reservation.VenueID, from, to)
		if err != nil {
			return err
		}

		if booked+reservation.PartySize > venue.Capacity {
			reservation.State = StateWaitlisted
			reservation.HoldExpiresAt = nil
		}

		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		return nil
	})
	return booked, err
}

// CompareAndSetState moves the reservation to `to` only while its stored state
// is still `from`. ErrStateConflict means another writer got there first.
func (r *repository) CompareAndSetState(ctx context.Context, id uuid.UUID, from, to State, at time.Time) error {
	updates := map[string]interface{}{
		"state":              to,
		"last_transition_at": at,
	}
	if !to.HoldsCapacity() || to == StateConfirmed {
		updates["hold_expires_at"] = nil
	}

	result := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND state = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s is no longer %s", ErrStateConflict, id, from)
	}
	return nil
}

func (r *repository) BookedBetween(ctx context.Context, venueID uuid.UUID, from, to time.Time) (int, error) {
	return bookedBetween(r.db.WithContext(ctx), venueID, from, to)
}

func bookedBetween(db *gorm.DB, venueID uuid.UUID, from, to time.Time) (int, error) {
	var booked int64
	err := db.Model(&Reservation{}).
		Select("COALESCE(SUM(party_size), 0)").
		Where("venue_id = ? AND date >= ? AND date < ?", venueID, from, to).
		Where("state IN ?", capacityStates()).
		Scan(&booked).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count booked places: %w", err)
	}
	return int(booked), nil
}

func (r *repository) OldestWaitlisted(ctx context.Context, venueID uuid.UUID, from, to time.Time) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND date >= ? AND date < ?", venueID, from, to).
		Where("state = ?", StateWaitlisted).
		Order("created_at ASC, id ASC").
		First(&reservation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// ListOverdueHolds finds pending holds whose deadline has passed. It backs up
// the expiry scheduler when Redis lost or never received a deadline.
func (r *repository) ListOverdueHolds(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("state = ? AND hold_expires_at <= ?", StateHoldPending, now).
		Order("hold_expires_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

func capacityStates() []State {
	return []State{StateHoldPending, StateConfirmed, StateAutoPromoted}
}
