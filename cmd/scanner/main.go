// Command scanner is the entrance device agent. It reads scanned credential
// codes from stdin, queues them durably on the device and uploads the queue
// to Kafka whenever the broker is reachable.
//
// Each input line is a code, optionally followed by a party size:
//
//	VP-3F2A9C... 2
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"venuepass/internal/scans"
	"venuepass/internal/shared/config"
	"venuepass/pkg/logger"
	"venuepass/pkg/messaging"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	flags := pflag.NewFlagSet("scanner", pflag.ExitOnError)
	storePath := flags.String("store", cfg.Scanner.StorePath, "path to the on-device scan database")
	deviceID := flags.String("device", cfg.Scanner.DeviceID, "device identifier (generated when empty)")
	venueID := flags.String("venue", cfg.Scanner.VenueID, "venue this device is stationed at")
	entranceID := flags.String("entrance", cfg.Scanner.EntranceID, "entrance identifier")
	staffID := flags.String("staff", cfg.Scanner.StaffID, "staff member operating the device")
	flushInterval := flags.Duration("flush-interval", cfg.Scanner.FlushInterval, "how often queued scans are uploaded")
	brokers := flags.StringSlice("brokers", cfg.Kafka.Brokers, "Kafka brokers; empty disables upload")
	topic := flags.String("topic", cfg.Kafka.ScansTopic, "Kafka topic for uploaded scans")
	syncOff := flags.Bool("unsafe-no-sync", cfg.Scanner.SynchronousOff, "disable fsync on the scan database")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *deviceID == "" {
		*deviceID = "device-" + uuid.NewString()[:8]
	}
	log := logger.GetDefault().WithDeviceID(*deviceID)

	if *venueID == "" || *staffID == "" {
		fmt.Fprintln(os.Stderr, "scanner: --venue and --staff are required")
		os.Exit(2)
	}

	if err := run(runConfig{
		storePath:     *storePath,
		deviceID:      *deviceID,
		venueID:       *venueID,
		entranceID:    *entranceID,
		staffID:       *staffID,
		flushInterval: *flushInterval,
		brokers:       *brokers,
		topic:         *topic,
		syncOff:       *syncOff,
		clientID:      cfg.Kafka.ClientID,
		maxRetries:    cfg.Kafka.MaxRetries,
		timeout:       cfg.Kafka.RequestTimeout,
		poolSize:      cfg.Scanner.PoolSize,
	}, log); err != nil {
		log.Error("Scanner stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

type runConfig struct {
	storePath     string
	deviceID      string
	venueID       string
	entranceID    string
	staffID       string
	flushInterval time.Duration
	brokers       []string
	topic         string
	syncOff       bool
	clientID      string
	maxRetries    int
	timeout       time.Duration
	poolSize      int
}

func run(rc runConfig, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := scans.OpenSQLiteStore(scans.SQLiteConfig{
		Path:           rc.storePath,
		PoolSize:       rc.poolSize,
		SynchronousOff: rc.syncOff,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	cache, err := scans.OpenCache(ctx, store)
	if err != nil {
		return err
	}
	log.Info("Scan queue opened", slog.String("path", rc.storePath), slog.Int("pending", cache.Len()))

	station := scans.NewStation(rc.deviceID, cache)
	station.Bind(rc.staffID, rc.venueID)

	var drainer *scans.Drainer
	stopDrainer := func() {}
	if len(rc.brokers) > 0 {
		producer, err := messaging.NewProducer(messaging.Config{
			Brokers:        rc.brokers,
			ClientID:       rc.clientID + "-scanner",
			MaxRetries:     rc.maxRetries,
			RequestTimeout: rc.timeout,
		})
		if err != nil {
			// Scans keep queuing; upload resumes on the next start
			log.Warn("Kafka unavailable, queuing only", slog.Any("error", err))
		} else {
			defer producer.Close()
			drainer = scans.NewDrainer(cache, scans.NewKafkaRemote(producer, rc.topic))
			stopDrainer = drainer.Start(ctx, rc.flushInterval)
		}
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			input, ok := parseLine(line)
			if !ok {
				continue
			}
			input.EntranceID = rc.entranceID
			ev, err := station.RecordScan(ctx, input)
			if err != nil {
				log.Error("Scan not recorded", slog.String("code", input.Code), slog.Any("error", err))
				fmt.Println("ERROR", input.Code)
				continue
			}
			fmt.Println(ev.Result, ev.Code, ev.ID)
		}
	}

	// stdin EOF leaves ctx live, so the periodic loop is stopped explicitly
	stopDrainer()
	if drainer == nil {
		log.Info("Exiting with queued scans", slog.Int("pending", cache.Len()))
		return nil
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := drainer.Flush(flushCtx)
	if err != nil {
		log.Warn("Final flush incomplete", slog.Int("left", cache.Len()))
		return nil
	}
	log.Info("Final flush complete", slog.Int("confirmed", res.Confirmed))
	return nil
}

// parseLine reads "code [party_size]". Blank lines are skipped.
func parseLine(line string) (scans.ScanInput, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return scans.ScanInput{}, false
	}
	input := scans.ScanInput{
		Code:   fields[0],
		Result: scans.ResultOfflineQueued,
	}
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
			input.PartySize = n
		}
	}
	return input, true
}
