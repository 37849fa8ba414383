package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/playware/inventory-service/internal/config"
	"github.com/playware/inventory-service/internal/logger"
	"github.com/playware/inventory-service/internal/store"
)

const targetDateFormat = "2006-01-02 15:04:05"

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
	targetDate = flag.String("target-date", "", "Instant whose covering month partition is ensured (format: 2006-01-02 15:04:05, UTC); defaults to now")
	cronSpec   = flag.String("cron", "", "Cron schedule for daemon mode; overrides the configured schedule")
)

func main() {
	flag.Parse()

	config.ChdirRepoRoot()
	cfg, err := config.LoadPartitionMaintainerConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if *cronSpec != "" {
		cfg.Cron = *cronSpec
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "partition-maintainer",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)

	db, err := openDatabase(ctx, &cfg.Database)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}

	dataStore := store.NewPGStore(db, cfg.Partition.SentinelPlayerID)

	if cfg.Cron == "" {
		runOnce(ctx, dataStore)
		return
	}
	runDaemon(ctx, cancel, dataStore, cfg.Cron)
}

// runOnce ensures the partition covering the target instant and exits.
// Both "created" and "already exists" are success.
func runOnce(ctx context.Context, dataStore store.Store) {
	target := time.Now().UTC()
	if *targetDate != "" {
		var err error
		target, err = time.ParseInLocation(targetDateFormat, *targetDate, time.UTC)
		if err != nil {
			logger.FatalCtx(ctx, "Invalid target date", zap.String("target_date", *targetDate), zap.Error(err))
		}
	}

	outcome, err := dataStore.EnsureEventLogPartition(ctx, target)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to ensure event log partition", zap.Time("target", target), zap.Error(err))
	}

	logger.InfoCtx(ctx, "Partition maintenance complete",
		zap.Time("target", target),
		zap.String("partition", store.EventLogPartitionName(target)),
		zap.String("outcome", string(outcome)),
	)
}

// runDaemon ensures the current and next month's partitions on every tick so
// the partition for an upcoming month exists before its first event arrives.
func runDaemon(ctx context.Context, cancel context.CancelFunc, dataStore store.Store, spec string) {
	c := cron.New()

	tick := func() {
		now := time.Now().UTC()
		for _, target := range []time.Time{now, now.AddDate(0, 1, 0)} {
			outcome, err := dataStore.EnsureEventLogPartition(ctx, target)
			if err != nil {
				logger.ErrorCtx(ctx, err,
					zap.String("message", "Failed to ensure event log partition"),
					zap.Time("target", target),
				)
				continue
			}
			if outcome == store.PartitionCreated {
				logger.InfoCtx(ctx, "Provisioned event log partition",
					zap.String("partition", store.EventLogPartitionName(target)),
				)
			}
		}
	}

	if _, err := c.AddFunc(spec, tick); err != nil {
		logger.FatalCtx(ctx, "Invalid cron schedule", zap.String("cron", spec), zap.Error(err))
	}

	// Run immediately so a freshly deployed maintainer does not wait for the
	// first tick to provision anything.
	tick()

	logger.InfoCtx(ctx, "Starting partition maintainer", zap.String("cron", spec))
	c.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	cancel()

	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
		logger.Warn("Timed out waiting for running jobs to finish")
	}

	logger.Info("Partition maintainer stopped")
}

func openDatabase(ctx context.Context, dbCfg *config.DatabaseConfig) (*gorm.DB, error) {
	var db *gorm.DB

	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dbCfg.DSN()), &gorm.Config{})
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return db, nil
}
