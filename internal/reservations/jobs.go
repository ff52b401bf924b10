package reservations

import (
	"context"
	"time"

	"venuepass/pkg/logger"
)

// JobProcessor runs the hold expiry sweep in the background
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	ExpiryCheckInterval time.Duration
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		ExpiryCheckInterval: 15 * time.Second,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, config *JobConfig) *JobProcessor {
	if config == nil || config.ExpiryCheckInterval <= 0 {
		config = DefaultJobConfig()
	}

	return &JobProcessor{
		service: service,
		config:  config,
		log:     logger.GetDefault(),
		done:    make(chan struct{}),
	}
}

// Start starts the expiry sweep
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("Starting reservation background jobs",
		"expiry_interval", jp.config.ExpiryCheckInterval.String())

	go jp.startExpiryProcessor(ctx)
}

// Stop stops all background jobs
func (jp *JobProcessor) Stop() {
	jp.log.Info("Stopping reservation background jobs")
	close(jp.done)
}

func (jp *JobProcessor) startExpiryProcessor(ctx context.Context) {
	ticker := time.NewTicker(jp.config.ExpiryCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.processExpiredHolds(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) processExpiredHolds(ctx context.Context) {
	expired, err := jp.service.ExpireDue(ctx)
	if err != nil {
		jp.log.ErrorWithContext(ctx, "Error processing expired holds", err, nil)
		return
	}

	if expired > 0 {
		jp.log.InfoWithContext(ctx, "Expired reservation holds", map[string]interface{}{
			"count": expired,
		})
	}
}
