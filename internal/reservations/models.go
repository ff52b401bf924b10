package reservations

import (
	"time"

	"github.com/google/uuid"

	"venuepass/internal/pricing"
	"venuepass/pkg/money"
)

// Reservation is one party's claim on venue capacity for a date
type Reservation struct {
	ID               uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID           uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	VenueID          uuid.UUID    `gorm:"type:uuid;not null;index:idx_reservations_venue_date" json:"venue_id"`
	ResourceID       string       `gorm:"type:varchar(64)" json:"resource_id,omitempty"`
	Date             time.Time    `gorm:"not null;index:idx_reservations_venue_date" json:"date"`
	PartySize        int          `gorm:"not null;check:party_size > 0" json:"party_size"`
	QuotedPrice      money.Amount `gorm:"type:bigint;not null" json:"quoted_price"`
	State            State        `gorm:"type:varchar(20);not null;index" json:"state"`
	HoldCreatedAt    time.Time    `gorm:"not null" json:"hold_created_at"`
	HoldExpiresAt    *time.Time   `json:"hold_expires_at,omitempty"`
	LastTransitionAt time.Time    `gorm:"not null" json:"last_transition_at"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// TableName sets the table name for Reservation
func (Reservation) TableName() string {
	return "reservations"
}

// Total is the quoted price for the whole party
func (r *Reservation) Total() money.Amount {
	return r.QuotedPrice.Times(r.PartySize)
}

// IsOwnedBy checks if the reservation belongs to the user
func (r *Reservation) IsOwnedBy(userID uuid.UUID) bool {
	return r.UserID == userID
}

// HoldExpired reports whether the payment window has closed at now
func (r *Reservation) HoldExpired(now time.Time) bool {
	return r.State == StateHoldPending && r.HoldExpiresAt != nil && !now.Before(*r.HoldExpiresAt)
}

// TransitionMessage is published for every applied state change
type TransitionMessage struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	VenueID       uuid.UUID `json:"venue_id"`
	UserID        uuid.UUID `json:"user_id"`
	From          State     `json:"from"`
	Event         Event     `json:"event,omitempty"`
	To            State     `json:"to"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Request DTOs

type QuoteRequest struct {
	VenueID   string    `json:"venue_id" validate:"required,uuid"`
	Date      time.Time `json:"date" validate:"required"`
	PartySize int       `json:"party_size" validate:"required,min=1"`
}

type CreateReservationRequest struct {
	VenueID    string    `json:"venue_id" validate:"required,uuid"`
	ResourceID string    `json:"resource_id" validate:"omitempty,max=64"`
	Date       time.Time `json:"date" validate:"required"`
	PartySize  int       `json:"party_size" validate:"required,min=1"`
}

type ApplyEventRequest struct {
	Event string `json:"event" validate:"required,oneof=PAYMENT_CAPTURED HOLD_EXPIRED WAITLIST_PROMOTED"`
}

type ListQuery struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// Response DTOs

type QuoteResponse struct {
	VenueID      uuid.UUID     `json:"venue_id"`
	Date         time.Time     `json:"date"`
	PartySize    int           `json:"party_size"`
	Capacity     int           `json:"capacity"`
	Booked       int           `json:"booked"`
	Available    bool          `json:"available"`
	UnitPrice    money.Amount  `json:"unit_price"`
	Total        money.Amount  `json:"total"`
	Range        pricing.Range `json:"range"`
	AppliedRule  string        `json:"applied_rule,omitempty"`
	MatchedRules []string      `json:"matched_rules,omitempty"`
}
