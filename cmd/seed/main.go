package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"venuepass/internal/shared/config"
	"venuepass/internal/shared/constants"
	"venuepass/internal/shared/database"
	"venuepass/internal/tickets"
	"venuepass/internal/venues"
	"venuepass/pkg/money"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gorm.io/gorm"
)

// Fixed owner ids so seeded tickets can be exercised with hand-made tokens
var seedUsers = map[string]uuid.UUID{
	"user1": uuid.MustParse("7b0c5a52-8a3d-4d7e-9d51-2f0c8e1a0001"),
	"user2": uuid.MustParse("7b0c5a52-8a3d-4d7e-9d51-2f0c8e1a0002"),
}

type Seeder struct {
	db *database.DB
}

func main() {
	clean := pflag.Bool("clean", true, "truncate venuepass tables before seeding")
	pflag.Parse()

	_ = godotenv.Load()

	fmt.Println("Starting venuepass database seeder...")

	cfg := config.Load()
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	if *clean {
		fmt.Println("Cleaning database...")
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
	}

	fmt.Println("Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("Seeding completed")
}

// CleanDatabase truncates all tables, dependents first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"resale_offers",
		"reservations",
		"event_tickets",
		"venues",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds venues and tickets, then drops cached state derived from the old rows
func (s *Seeder) SeedAll(ctx context.Context) error {
	venueList, err := s.SeedVenues(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed venues: %w", err)
	}

	if err := s.SeedTickets(ctx, venueList); err != nil {
		return fmt.Errorf("failed to seed tickets: %w", err)
	}

	keys := []string{constants.CACHE_KEY_VENUES_LIST, constants.KEY_RESERVATION_HOLD_DEADLINES}
	for _, v := range venueList {
		keys = append(keys, constants.BuildVenueDetailKey(v.ID.String()))
	}
	if err := s.db.Redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Warning: failed to clear Redis keys: %v", err)
	}
	return nil
}

// SeedVenues creates venues in different timezones so hour-window rules can be tried
func (s *Seeder) SeedVenues(ctx context.Context) ([]venues.Venue, error) {
	repo := venues.NewRepository(s.db.PostgreSQL)

	data := []struct {
		name      string
		capacity  int
		timezone  string
		basePrice string
	}{
		{"Blue Note Rooftop", 120, "America/New_York", "85.00"},
		{"Harbour Hall", 400, "Europe/London", "150.00"},
		{"Shibuya Basement", 60, "Asia/Tokyo", "40.00"},
	}

	created := make([]venues.Venue, 0, len(data))
	for _, d := range data {
		v := venues.Venue{
			ID:        uuid.New(),
			Name:      d.name,
			Capacity:  d.capacity,
			Timezone:  d.timezone,
			BasePrice: money.MustParseAmount(d.basePrice),
		}
		if err := repo.Create(ctx, &v); err != nil {
			return nil, fmt.Errorf("failed to create venue %s: %w", d.name, err)
		}
		created = append(created, v)
		fmt.Printf("  Created venue: %s (%s, capacity %d)\n", v.Name, v.ID, v.Capacity)
	}
	return created, nil
}

// SeedTickets issues two tickets per venue, one for each seed user
func (s *Seeder) SeedTickets(ctx context.Context, venueList []venues.Venue) error {
	repo := tickets.NewRepository(s.db.PostgreSQL)
	now := time.Now().UTC()

	for i, v := range venueList {
		eventID := uuid.New()
		eventDate := now.AddDate(0, 0, 14+7*i).Truncate(24 * time.Hour).Add(20 * time.Hour)

		for _, key := range []string{"user1", "user2"} {
			t := tickets.EventTicket{
				ID:             uuid.New(),
				EventID:        eventID,
				EventName:      fmt.Sprintf("Opening night at %s", v.Name),
				EventDate:      eventDate,
				VenueID:        v.ID,
				UserID:         seedUsers[key],
				TicketType:     "GENERAL",
				Price:          v.BasePrice,
				Status:         tickets.StatusValid,
				CredentialCode: tickets.NewCredentialCode(),
				PurchasedAt:    now,
			}
			if err := repo.Create(ctx, &t); err != nil {
				return fmt.Errorf("failed to create ticket for %s: %w", v.Name, err)
			}
			fmt.Printf("  Issued ticket %s (%s) to %s\n", t.ID, t.CredentialCode, key)
		}
	}
	return nil
}
