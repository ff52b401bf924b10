package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimitType string

const (
	RateLimitTypeDefault          RateLimitType = "default"
	RateLimitTypeHealth           RateLimitType = "health"
	RateLimitTypePublic           RateLimitType = "public"
	RateLimitTypeReservations     RateLimitType = "reservations"
	RateLimitTypeReservationEvent RateLimitType = "reservation_events"
	RateLimitTypeResale           RateLimitType = "resale"
	RateLimitTypeAdmin            RateLimitType = "admin"
)

// Config holds per-class request budgets for one window
type Config struct {
	Enabled                  bool          `json:"enabled"`
	KeyPrefix                string        `json:"key_prefix"`
	WindowDuration           time.Duration `json:"window_duration"`
	DefaultRequests          int           `json:"default_requests"`
	HealthRequests           int           `json:"health_requests"`
	PublicRequests           int           `json:"public_requests"`
	ReservationRequests      int           `json:"reservation_requests"`
	ReservationEventRequests int           `json:"reservation_event_requests"`
	ResaleRequests           int           `json:"resale_requests"`
	AdminRequests            int           `json:"admin_requests"`
	WhitelistedIPs           []string      `json:"whitelisted_ips"`
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// slidingWindow trims entries older than the window, then admits the request
// if the remaining count is under the limit. Returns {admitted, count}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

local count = redis.call('ZCARD', key)
if count >= limit then
	redis.call('PEXPIRE', key, window_ms)
	return {0, count}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window_ms)
return {1, count + 1}
`)

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *redis.Client
	config *Config
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "venuepass:rate_limit"
	}
	return &RateLimiter{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// PreloadScripts loads the window script so requests can use EVALSHA
func (r *RateLimiter) PreloadScripts(ctx context.Context) error {
	if err := slidingWindow.Load(ctx, r.client).Err(); err != nil {
		return fmt.Errorf("failed to load rate limit script: %w", err)
	}
	return nil
}

// IsAllowed checks if request is allowed
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	now := r.now()

	if !r.config.Enabled || r.isWhitelisted(clientIP) {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: now.Add(r.config.WindowDuration).Unix(),
		}, nil
	}

	key := fmt.Sprintf("%s:%s:%s", r.config.KeyPrefix, clientIP, limitType)
	return r.checkLimit(ctx, key, limit, now)
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, now time.Time) (*Result, error) {
	windowStart := now.Add(-r.config.WindowDuration)

	values, err := slidingWindow.Run(ctx, r.client, []string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		limit,
		r.config.WindowDuration.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected rate limit script response")
	}

	remaining := limit - int(values[1])
	if remaining < 0 {
		remaining = 0
	}
	return &Result{
		Allowed:   values[0] == 1,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	case RateLimitTypePublic:
		return r.config.PublicRequests
	case RateLimitTypeReservations:
		return r.config.ReservationRequests
	case RateLimitTypeReservationEvent:
		return r.config.ReservationEventRequests
	case RateLimitTypeResale:
		return r.config.ResaleRequests
	case RateLimitTypeAdmin:
		return r.config.AdminRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	for _, whitelistedIP := range r.config.WhitelistedIPs {
		if ip == whitelistedIP {
			return true
		}
	}
	return false
}
