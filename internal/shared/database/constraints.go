package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// One open resale listing per ticket
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_resale_offers_open_ticket
		ON resale_offers (ticket_id)
		WHERE status IN ('PENDING', 'ACTIVE', 'MATCHED');
	`).Error
	if err != nil {
		return err
	}

	// Occupancy sums only capacity-holding states
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_venue_date_holding
		ON reservations (venue_id, date)
		WHERE state IN ('HOLD_PENDING', 'CONFIRMED', 'AUTO_PROMOTED');
	`).Error
	if err != nil {
		return err
	}

	// Waitlist promotion scans oldest first
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_reservations_waitlist_fifo
		ON reservations (venue_id, date, created_at)
		WHERE state = 'WAITLISTED';
	`).Error
}
