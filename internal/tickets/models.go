package tickets

import (
	"time"

	"github.com/google/uuid"

	"venuepass/pkg/money"
)

type Status string

const (
	StatusValid    Status = "VALID"
	StatusUsed     Status = "USED"
	StatusRefunded Status = "REFUNDED"
	StatusExpired  Status = "EXPIRED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusValid, StatusUsed, StatusRefunded, StatusExpired:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the ticket lifecycle allows moving to target
func (s Status) CanTransitionTo(target Status) bool {
	validTransitions := map[Status][]Status{
		StatusValid:    {StatusUsed, StatusRefunded, StatusExpired},
		StatusUsed:     {},
		StatusRefunded: {},
		StatusExpired:  {},
	}

	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// EventTicket is an issued admission credential. Only Status changes after issue.
type EventTicket struct {
	ID             uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"event_id"`
	EventName      string       `gorm:"not null" json:"event_name"`
	EventDate      time.Time    `gorm:"not null;index" json:"event_date"`
	VenueID        uuid.UUID    `gorm:"type:uuid;not null;index" json:"venue_id"`
	UserID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	TicketType     string       `gorm:"type:varchar(50);not null;default:'GENERAL'" json:"ticket_type"`
	Price          money.Amount `gorm:"type:bigint;not null" json:"price"`
	Status         Status       `gorm:"type:varchar(20);not null;default:'VALID';index" json:"status"`
	CredentialCode string       `gorm:"uniqueIndex;not null" json:"credential_code"`
	PurchasedAt    time.Time    `gorm:"not null" json:"purchased_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName sets the table name for EventTicket
func (EventTicket) TableName() string {
	return "event_tickets"
}

// IsOwnedBy reports whether the ticket belongs to userID
func (t *EventTicket) IsOwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}
