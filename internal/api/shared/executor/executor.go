package executor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/playware/inventory-service/internal/adapter"
	"github.com/playware/inventory-service/internal/api/shared/dto"
	"github.com/playware/inventory-service/internal/domain"
	"github.com/playware/inventory-service/internal/logger"
	"github.com/playware/inventory-service/internal/messaging"
	"github.com/playware/inventory-service/internal/store"
)

// Executor is the interface for the API executor. It owns the grant
// orchestration: one transaction per attempt, with a single
// provision-and-retry cycle when the event log partition is missing.
type Executor interface {
	// GrantItem credits a player's balance and records an audit event.
	// Duplicate requests (same player_id and ext_trx_id) succeed without
	// effect.
	GrantItem(ctx context.Context, playerID int64, itemCode string, amount int64, extTrxID *string, inventoryType string) error

	// GetInventory returns the player's full inventory
	GetInventory(ctx context.Context, playerID int64) (*dto.InventoryData, error)
}

type executor struct {
	store store.Store
	clock adapter.Clock
	// publisher is optional; nil disables grant event publishing
	publisher messaging.Publisher
}

// NewExecutor creates a new API executor
func NewExecutor(s store.Store, clock adapter.Clock, publisher messaging.Publisher) Executor {
	return &executor{store: s, clock: clock, publisher: publisher}
}

func (e *executor) GrantItem(ctx context.Context, playerID int64, itemCode string, amount int64, extTrxID *string, inventoryType string) error {
	if inventoryType == "" {
		inventoryType = domain.DefaultInventoryType
	}

	// One timestamp basis for the credit, the event log append, and the
	// provisioning retry, so the retried transaction targets the same
	// partition.
	input := store.GrantInput{
		PlayerID:      playerID,
		ItemCode:      itemCode,
		InventoryType: inventoryType,
		Amount:        amount,
		ExtTrxID:      extTrxID,
		EventTime:     e.clock.Now().UTC(),
	}

	result, err := e.store.GrantItem(ctx, input)
	if errors.Is(err, domain.ErrPartitionMissing) {
		outcome, ensureErr := e.store.EnsureEventLogPartition(ctx, input.EventTime)
		if ensureErr != nil {
			return fmt.Errorf("failed to provision event log partition: %w", ensureErr)
		}
		logger.InfoCtx(ctx, "Provisioned missing event log partition, retrying grant",
			zap.String("outcome", string(outcome)),
			zap.Time("event_time", input.EventTime),
		)

		// Retry exactly once. A second missing-partition failure means the
		// schema is persistently broken and is surfaced as a server error.
		result, err = e.store.GrantItem(ctx, input)
	}
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int64("player_id", playerID),
		zap.String("item_code", itemCode),
		zap.String("inventory_type", inventoryType),
		zap.Stringp("ext_trx_id", extTrxID),
	}

	switch {
	case result.Status == store.GrantDuplicate:
		logger.InfoCtx(ctx, "Duplicate grant request suppressed", fields...)
		return nil
	case result.BalanceCreated:
		logger.InfoCtx(ctx, "Created new inventory", fields...)
	default:
		logger.InfoCtx(ctx, "Updated existing inventory", fields...)
	}

	if e.publisher != nil {
		event := &messaging.GrantEvent{
			PlayerID:      playerID,
			ItemCode:      itemCode,
			InventoryType: inventoryType,
			Amount:        amount,
			NewAmount:     result.NewAmount,
			ExtTrxID:      extTrxID,
			EventTime:     input.EventTime,
		}
		// The grant is already committed; a publish failure is logged, not
		// surfaced to the caller.
		if err := e.publisher.PublishGrant(ctx, event); err != nil {
			logger.ErrorCtx(ctx, err, zap.Int64("player_id", playerID), zap.String("item_code", itemCode))
		}
	}

	return nil
}

func (e *executor) GetInventory(ctx context.Context, playerID int64) (*dto.InventoryData, error) {
	rows, err := e.store.GetPlayerInventory(ctx, playerID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.InventoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.InventoryItem{
			ID:            row.ID,
			InventoryType: row.InventoryType,
			ItemCode:      row.ItemCode,
			Amount:        row.Amount,
		})
	}

	return &dto.InventoryData{PlayerID: playerID, Inventory: items}, nil
}
