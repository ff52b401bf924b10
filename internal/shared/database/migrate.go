package database

import (
	"venuepass/internal/reservations"
	"venuepass/internal/resale"
	"venuepass/internal/tickets"
	"venuepass/internal/venues"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&venues.Venue{},
		&tickets.EventTicket{},
		&reservations.Reservation{},
		&resale.Offer{},
	)
}
