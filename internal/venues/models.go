package venues

import (
	"time"

	"github.com/google/uuid"

	"venuepass/pkg/money"
)

// Venue is a bookable location. Capacity feeds pricing utilization and the
// timezone decides which local hour pricing rules are evaluated against.
type Venue struct {
	ID        uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string       `gorm:"uniqueIndex;not null" json:"name"`
	Capacity  int          `gorm:"not null;check:capacity >= 0" json:"capacity"`
	Timezone  string       `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	BasePrice money.Amount `gorm:"type:bigint;not null;default:0" json:"base_price"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName sets the table name for Venue
func (Venue) TableName() string {
	return "venues"
}

// Location loads the venue's IANA timezone, falling back to UTC
func (v *Venue) Location() *time.Location {
	if v.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDay returns the venue-local calendar day containing t as a [start, end) window
func (v *Venue) LocalDay(t time.Time) (time.Time, time.Time) {
	local := t.In(v.Location())
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	return start, start.AddDate(0, 0, 1)
}
