package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrTicketNotFound    = errors.New("ticket not found")
	ErrInvalidTransition = errors.New("invalid ticket status transition")
)

type Repository interface {
	Create(ctx context.Context, ticket *EventTicket) error
	GetByID(ctx context.Context, id uuid.UUID) (*EventTicket, error)
	GetByCredential(ctx context.Context, code string) (*EventTicket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ticket *EventTicket) error {
	if ticket.CredentialCode == "" {
		ticket.CredentialCode = NewCredentialCode()
	}
	if ticket.Status == "" {
		ticket.Status = StatusValid
	}
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*EventTicket, error) {
	var ticket EventTicket
	err := r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) GetByCredential(ctx context.Context, code string) (*EventTicket, error) {
	var ticket EventTicket
	err := r.db.WithContext(ctx).First(&ticket, "credential_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatus moves a ticket from one status to another. The update only
// applies while the stored status still equals from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	result := r.db.WithContext(ctx).
		Model(&EventTicket{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: ticket %s is no longer %s", ErrInvalidTransition, id, from)
	}
	return nil
}
