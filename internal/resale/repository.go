package resale

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrOfferNotFound = errors.New("resale offer not found")

type Repository interface {
	Create(ctx context.Context, offer *Offer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Offer, error)
	FindOpenByTicket(ctx context.Context, ticketID uuid.UUID) (*Offer, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status OfferStatus) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, offer *Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Offer, error) {
	var offer Offer
	err := r.db.WithContext(ctx).First(&offer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindOpenByTicket(ctx context.Context, ticketID uuid.UUID) (*Offer, error) {
	var offer Offer
	err := r.db.WithContext(ctx).
		Where("ticket_id = ? AND status IN ?", ticketID,
			[]OfferStatus{OfferStatusPending, OfferStatusActive, OfferStatusMatched}).
		First(&offer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status OfferStatus) error {
	result := r.db.WithContext(ctx).Model(&Offer{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOfferNotFound
	}
	return nil
}
