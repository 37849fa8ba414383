package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/playware/inventory-service/internal/domain"
	"github.com/playware/inventory-service/internal/logger"
	"github.com/playware/inventory-service/internal/store/schema"
)

// partitionBoundFormat renders a timestamptz literal for partition DDL
const partitionBoundFormat = "2006-01-02 15:04:05-07"

// errProbeRollback unwinds the speculative probe transaction so the sentinel
// row never becomes visible
var errProbeRollback = errors.New("partition probe rollback")

// MonthBounds returns the half-open [start, end) UTC interval of the calendar
// month containing t. The upper bound is the first instant of the following
// month, computed by calendar rollover.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// EventLogPartitionName derives the stable child table name for the month
// containing t, e.g. log_player_event_y2026m08.
func EventLogPartitionName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("log_player_event_y%04dm%02d", t.Year(), int(t.Month()))
}

// EventLogPartitionExists reports partition existence via a catalog lookup.
// This is the primary probe mechanism; see ProbeEventLogPartition for the
// speculative fallback.
func (s *pgStore) EventLogPartitionExists(ctx context.Context, target time.Time) (bool, error) {
	var exists bool
	err := s.db.WithContext(ctx).
		Raw("SELECT to_regclass(?) IS NOT NULL", EventLogPartitionName(target)).
		Scan(&exists).Error
	if err != nil {
		return false, fmt.Errorf("failed to query partition catalog: %w", err)
	}
	return exists, nil
}

// ProbeEventLogPartition reports partition existence by inserting a sentinel
// row at the target instant inside a transaction that is always rolled back.
// Fallback for deployments where catalog access is revoked; the catalog
// lookup in EventLogPartitionExists is preferred. The sentinel player ID is
// reserved and never collides with real data.
func (s *pgStore) ProbeEventLogPartition(ctx context.Context, target time.Time) (bool, error) {
	exists := true
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event := schema.PlayerEventLog{
			PlayerID:  s.sentinelPlayerID,
			EventType: domain.EventTypeInventoryGranted,
			EventTime: target.UTC(),
		}
		if err := tx.Create(&event).Error; err != nil {
			if isPartitionMissing(err) {
				exists = false
				return errProbeRollback
			}
			return fmt.Errorf("partition probe insert failed: %w", err)
		}
		// Roll back unconditionally; the sentinel row must never commit.
		return errProbeRollback
	})
	if err != nil && !errors.Is(err, errProbeRollback) {
		return false, err
	}
	return exists, nil
}

// EnsureEventLogPartition creates the monthly partition covering target if it
// is missing. A duplicate_table error from a racing creator is swallowed as
// AlreadyExists; partition creation locks the parent table, so concurrent
// callers only pay added latency.
func (s *pgStore) EnsureEventLogPartition(ctx context.Context, target time.Time) (PartitionOutcome, error) {
	exists, err := s.EventLogPartitionExists(ctx, target)
	if err != nil {
		return "", err
	}
	if exists {
		return PartitionAlreadyExists, nil
	}

	start, end := MonthBounds(target)
	name := EventLogPartitionName(target)

	// The name is derived from (year, month) only, so interpolating it into
	// DDL is safe. Bounds cannot be bind parameters in DDL either.
	ddl := fmt.Sprintf(
		"CREATE TABLE %s PARTITION OF log_player_event FOR VALUES FROM ('%s') TO ('%s')",
		name,
		start.Format(partitionBoundFormat),
		end.Format(partitionBoundFormat),
	)
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		if isDuplicateTable(err) {
			return PartitionAlreadyExists, nil
		}
		return "", fmt.Errorf("failed to create partition %s: %w", name, err)
	}

	logger.InfoCtx(ctx, "Created event log partition",
		zap.String("partition", name),
		zap.Time("from", start),
		zap.Time("to", end),
	)
	return PartitionCreated, nil
}
