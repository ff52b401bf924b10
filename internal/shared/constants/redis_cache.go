package constants

import "time"

// Redis key layout
// Pattern: venuepass:{module}:{purpose}:{identifier}

// ================== CACHE TTL DURATIONS ==================

const (
	TTL_STATIC_MEDIUM = 12 * time.Hour  // venue records
	TTL_DYNAMIC_SHORT = 5 * time.Minute // venue listings
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "venuepass"
)

// ================== VENUES MODULE ==================

const (
	CACHE_KEY_VENUE_DETAIL = CACHE_PREFIX + ":venues:detail:uuid:" // + venue-id
	CACHE_KEY_VENUES_LIST  = CACHE_PREFIX + ":venues:list"
)

const (
	TTL_VENUE_DETAIL = TTL_STATIC_MEDIUM
	TTL_VENUES_LIST  = TTL_DYNAMIC_SHORT
)

// ================== RESERVATIONS MODULE ==================

const (
	// Sorted set of hold ids scored by expiry deadline (unix millis)
	KEY_RESERVATION_HOLD_DEADLINES = CACHE_PREFIX + ":reservations:holds:deadlines"
)

// ================== RATE LIMITING ==================

const (
	KEY_RATE_LIMIT_PREFIX = CACHE_PREFIX + ":rate_limit"
)

// BuildVenueDetailKey returns the cache key for a single venue
func BuildVenueDetailKey(venueID string) string {
	return CACHE_KEY_VENUE_DETAIL + venueID
}
