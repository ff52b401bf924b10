package resale

import (
	"time"

	"github.com/google/uuid"

	"venuepass/pkg/money"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "PENDING"
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusMatched   OfferStatus = "MATCHED"
	OfferStatusCompleted OfferStatus = "COMPLETED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// IsOpen reports whether the offer still blocks another listing of the same ticket
func (s OfferStatus) IsOpen() bool {
	switch s {
	case OfferStatusPending, OfferStatusActive, OfferStatusMatched:
		return true
	}
	return false
}

// Offer is a secondary-market listing of a ticket
type Offer struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TicketID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"ticket_id"`
	SellerID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"seller_id"`
	BuyerID   *uuid.UUID   `gorm:"type:uuid" json:"buyer_id,omitempty"`
	Price     money.Amount `gorm:"type:bigint;not null" json:"price"`
	Cap       money.Amount `gorm:"type:bigint;not null" json:"cap"`
	Status    OfferStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName sets the table name for Offer
func (Offer) TableName() string {
	return "resale_offers"
}

type CreateOfferRequest struct {
	TicketID string `json:"ticket_id" validate:"required,uuid"`
	Price    string `json:"price" validate:"required,numeric"`
}

// CapResponse describes the ceiling for one ticket
type CapResponse struct {
	TicketID   uuid.UUID    `json:"ticket_id"`
	FacePrice  money.Amount `json:"face_price"`
	Cap        money.Amount `json:"cap"`
	Multiplier money.Ratio  `json:"multiplier"`
	Occupancy  Occupancy    `json:"occupancy"`
}
