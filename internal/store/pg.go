package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/playware/inventory-service/internal/domain"
	"github.com/playware/inventory-service/internal/store/schema"
)

// Postgres error codes this store reacts to. Partition routing failures are
// reported as check violations with a distinctive message; racing partition
// creations fail with duplicate_table.
const (
	pgCodeCheckViolation = "23514"
	pgCodeDuplicateTable = "42P07"
)

type pgStore struct {
	db *gorm.DB
	// sentinelPlayerID is the reserved player ID written (and always rolled
	// back) by the speculative partition probe
	sentinelPlayerID int64
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, sentinelPlayerID int64) Store {
	return &pgStore{db: db, sentinelPlayerID: sentinelPlayerID}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// GrantItem applies one grant in a single transaction: register the
// idempotency token, credit the balance, append the audit event. Concurrent
// grants for the same (player_id, ext_trx_id) serialize on the unique
// constraint of player_inventory_trx; exactly one observes Applied.
func (s *pgStore) GrantItem(ctx context.Context, input GrantInput) (*GrantResult, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if input.InventoryType == "" {
		input.InventoryType = domain.DefaultInventoryType
	}
	if input.EventTime.IsZero() {
		input.EventTime = time.Now().UTC()
	}

	result := &GrantResult{Status: GrantApplied}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.ExtTrxID != nil {
			trx := schema.PlayerInventoryTrx{
				PlayerID: input.PlayerID,
				ExtTrxID: *input.ExtTrxID,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "player_id"}, {Name: "ext_trx_id"}},
				DoNothing: true,
			}).Clauses(clause.Returning{Columns: []clause.Column{}}).
				Create(&trx).Error; err != nil {
				return fmt.Errorf("failed to register idempotency token: %w", err)
			}

			// A zero ID means the token was seen before: the grant was
			// already applied. Committing with no other writes is harmless.
			if trx.ID == 0 {
				result.Status = GrantDuplicate
				return nil
			}
		}

		// Upsert with (xmax = 0) so created-vs-updated is determined by the
		// same statement, with no race between an existence check and the
		// write. The existing row's inventory_type is authoritative and is
		// deliberately not part of the update.
		var row struct {
			ID       int64
			Amount   int64
			Inserted bool
		}
		if err := tx.Raw(`
			INSERT INTO player_inventory (player_id, inventory_type, item_code, amount)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (player_id, item_code)
			DO UPDATE SET amount = player_inventory.amount + EXCLUDED.amount, updated_at = now()
			RETURNING id, amount, (xmax = 0) AS inserted`,
			input.PlayerID, input.InventoryType, input.ItemCode, input.Amount,
		).Scan(&row).Error; err != nil {
			return fmt.Errorf("failed to credit inventory: %w", err)
		}
		result.BalanceCreated = row.Inserted
		result.NewAmount = row.Amount

		meta, err := json.Marshal(schema.EventLogMeta{
			InventoryType: input.InventoryType,
			ItemCode:      input.ItemCode,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal event meta: %w", err)
		}

		event := schema.PlayerEventLog{
			PlayerID:      input.PlayerID,
			EventType:     domain.EventTypeInventoryGranted,
			EventValueInt: input.Amount,
			MetaData:      meta,
			ExtTrxID:      input.ExtTrxID,
			EventTime:     input.EventTime.UTC(),
		}
		if err := tx.Create(&event).Error; err != nil {
			if isPartitionMissing(err) {
				return domain.ErrPartitionMissing
			}
			return fmt.Errorf("failed to append event log: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetPlayerInventory returns all inventory rows for a player, ordered by item code
func (s *pgStore) GetPlayerInventory(ctx context.Context, playerID int64) ([]schema.PlayerInventory, error) {
	var rows []schema.PlayerInventory
	err := s.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("item_code").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query player inventory: %w", err)
	}
	return rows, nil
}

// isPartitionMissing reports whether err is Postgres rejecting a row because
// no partition of the target table covers it. Partition routing failures
// share SQLSTATE 23514 with ordinary check violations, so the message is
// matched as well.
func isPartitionMissing(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgCodeCheckViolation && strings.Contains(pgErr.Message, "no partition of relation")
}

// isDuplicateTable reports whether err is Postgres refusing to create a table
// that already exists.
func isDuplicateTable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgCodeDuplicateTable
}
