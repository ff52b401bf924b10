package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	// Server configuration
	Port           string
	GinMode        string
	APIVersion     string
	APIPrefix      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Kafka     KafkaConfig

	Pricing      PricingConfig
	Reservations ReservationsConfig
	Scanner      ScannerConfig

	// Logging
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	DSN      string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Addr     string

	// VenueCacheTTL bounds how long venue capacity/timezone lookups are cached
	VenueCacheTTL time.Duration
}

// JWTConfig holds JWT configuration. Tokens are issued elsewhere and only verified here.
type JWTConfig struct {
	Secret string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled              bool          `json:"enabled"`
	WindowDuration       time.Duration `json:"window_duration"`
	DefaultRequests      int           `json:"default_requests"`
	HealthRequests       int           `json:"health_requests"`
	PublicRequests       int           `json:"public_requests"`
	ReservationRequests  int           `json:"reservation_requests"`
	ReservationEventReqs int           `json:"reservation_event_requests"`
	ResaleRequests       int           `json:"resale_requests"`
	AdminRequests        int           `json:"admin_requests"`
	WhitelistedIPs       []string      `json:"whitelisted_ips"`
}

// KafkaConfig holds broker settings for reservation events and scan sync
type KafkaConfig struct {
	Enabled           bool
	Brokers           []string
	ClientID          string
	ReservationsTopic string
	ScansTopic        string
	MaxRetries        int
	RequestTimeout    time.Duration
}

// PricingConfig holds pricing policy and resale guard settings
type PricingConfig struct {
	PolicyPath            string
	DefaultBasePrice      string
	ResaleCapMultiplier   float64
	DefaultResaleCapacity int
	DefaultResaleBooked   int
}

// ReservationsConfig holds hold lifecycle settings
type ReservationsConfig struct {
	HoldTTL             time.Duration
	ExpirySweepInterval time.Duration
	ExpiryBatchSize     int
	MaxPartySize        int
}

// ScannerConfig holds the device agent settings
type ScannerConfig struct {
	StorePath      string
	DeviceID       string
	VenueID        string
	EntranceID     string
	StaffID        string
	FlushInterval  time.Duration
	PoolSize       int
	SynchronousOff bool
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		// Server configuration
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		APIVersion:     getEnv("API_VERSION", "v1"),
		APIPrefix:      getEnv("API_PREFIX", "/api"),
		ReadTimeout:    getDurationEnv("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:   getDurationEnv("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:    getDurationEnv("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes: getIntEnv("MAX_HEADER_BYTES", 1<<20), // 1 MB

		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			Name:     getEnv("DB_NAME", "venuepass_db"),
			User:     getEnv("DB_USER", "venuepass_user"),
			Password: getEnv("DB_PASSWORD", "venuepass_password"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		Redis: RedisConfig{
			Host:          getEnv("REDIS_HOST", "localhost"),
			Port:          getEnv("REDIS_PORT", "6379"),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getIntEnv("REDIS_DB", 0),
			VenueCacheTTL: getDurationEnv("REDIS_VENUE_CACHE_TTL", 12*time.Hour),
		},

		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		},

		RateLimit: RateLimitConfig{
			Enabled:              getBoolEnv("RATE_LIMIT_ENABLED", true),
			WindowDuration:       getDurationEnv("RATE_LIMIT_WINDOW_DURATION", 60*time.Second),
			DefaultRequests:      getIntEnv("RATE_LIMIT_DEFAULT_REQUESTS", 60),
			HealthRequests:       getIntEnv("RATE_LIMIT_HEALTH_REQUESTS", 300),
			PublicRequests:       getIntEnv("RATE_LIMIT_PUBLIC_REQUESTS", 100),
			ReservationRequests:  getIntEnv("RATE_LIMIT_RESERVATION_REQUESTS", 20),
			ReservationEventReqs: getIntEnv("RATE_LIMIT_RESERVATION_EVENT_REQUESTS", 120),
			ResaleRequests:       getIntEnv("RATE_LIMIT_RESALE_REQUESTS", 10),
			AdminRequests:        getIntEnv("RATE_LIMIT_ADMIN_REQUESTS", 200),
			WhitelistedIPs:       getStringSliceEnv("RATE_LIMIT_WHITELISTED_IPS", []string{}),
		},

		Kafka: KafkaConfig{
			Enabled:           getBoolEnv("KAFKA_ENABLED", false),
			Brokers:           getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			ClientID:          getEnv("KAFKA_CLIENT_ID", "venuepass"),
			ReservationsTopic: getEnv("KAFKA_RESERVATIONS_TOPIC", "venuepass.reservations"),
			ScansTopic:        getEnv("KAFKA_SCANS_TOPIC", "venuepass.scans"),
			MaxRetries:        getIntEnv("KAFKA_MAX_RETRIES", 5),
			RequestTimeout:    getDurationEnv("KAFKA_REQUEST_TIMEOUT", 10*time.Second),
		},

		Pricing: PricingConfig{
			PolicyPath:            getEnv("PRICING_POLICY_PATH", ""),
			DefaultBasePrice:      getEnv("PRICING_DEFAULT_BASE_PRICE", "100.00"),
			ResaleCapMultiplier:   getFloatEnv("RESALE_CAP_MULTIPLIER", 1.12),
			DefaultResaleCapacity: getIntEnv("RESALE_DEFAULT_CAPACITY", 400),
			DefaultResaleBooked:   getIntEnv("RESALE_DEFAULT_BOOKED", 320),
		},

		Reservations: ReservationsConfig{
			HoldTTL:             getDurationEnv("RESERVATION_HOLD_TTL", 10*time.Minute),
			ExpirySweepInterval: getDurationEnv("RESERVATION_EXPIRY_SWEEP_INTERVAL", 15*time.Second),
			ExpiryBatchSize:     getIntEnv("RESERVATION_EXPIRY_BATCH_SIZE", 100),
			MaxPartySize:        getIntEnv("RESERVATION_MAX_PARTY_SIZE", 12),
		},

		Scanner: ScannerConfig{
			StorePath:      getEnv("SCANNER_STORE_PATH", "./scans.db"),
			DeviceID:       getEnv("SCANNER_DEVICE_ID", ""),
			VenueID:        getEnv("SCANNER_VENUE_ID", ""),
			EntranceID:     getEnv("SCANNER_ENTRANCE_ID", "main"),
			StaffID:        getEnv("SCANNER_STAFF_ID", ""),
			FlushInterval:  getDurationEnv("SCANNER_FLUSH_INTERVAL", 30*time.Second),
			PoolSize:       getIntEnv("SCANNER_POOL_SIZE", 2),
			SynchronousOff: getBoolEnv("SCANNER_SYNCHRONOUS_OFF", false),
		},

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}

	// Build composite values
	cfg.Database.DSN = buildDatabaseDSN(cfg.Database)
	cfg.Redis.Addr = cfg.Redis.Host + ":" + cfg.Redis.Port

	return cfg
}

// buildDatabaseDSN builds the database connection string
func buildDatabaseDSN(db DatabaseConfig) string {
	return "host=" + db.Host +
		" port=" + db.Port +
		" user=" + db.User +
		" password=" + db.Password +
		" dbname=" + db.Name +
		" sslmode=" + db.SSLMode
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return fallback
}

// getStringSliceEnv gets a comma-separated string environment variable as a slice
func getStringSliceEnv(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		var result []string
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GinMode == "debug"
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// GetAPIBasePath returns the API base path
func (c *Config) GetAPIBasePath() string {
	return c.APIPrefix + "/" + c.APIVersion
}
