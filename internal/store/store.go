package store

import (
	"context"
	"time"

	"github.com/playware/inventory-service/internal/store/schema"
)

// GrantStatus reports whether a grant was applied or suppressed as a duplicate
type GrantStatus string

const (
	// GrantApplied means the balance was credited and an event was logged
	GrantApplied GrantStatus = "applied"
	// GrantDuplicate means the ext_trx_id was seen before and nothing was written
	GrantDuplicate GrantStatus = "duplicate"
)

// PartitionOutcome reports the result of ensuring an event log partition
type PartitionOutcome string

const (
	// PartitionCreated means this call created the partition
	PartitionCreated PartitionOutcome = "created"
	// PartitionAlreadyExists means the partition was already in place,
	// created either earlier or by a concurrent caller
	PartitionAlreadyExists PartitionOutcome = "already_exists"
)

// GrantInput holds the parameters of one grant transaction
type GrantInput struct {
	PlayerID      int64
	ItemCode      string
	InventoryType string
	// Amount is the delta to credit; must be positive
	Amount int64
	// ExtTrxID is the client idempotency token. When nil, deduplication is
	// skipped and the grant is applied unconditionally.
	ExtTrxID *string
	// EventTime is the timestamp basis shared by the credit and the event
	// log append; it determines the target partition
	EventTime time.Time
}

// GrantResult reports the outcome of one grant transaction
type GrantResult struct {
	Status GrantStatus
	// BalanceCreated is true when the grant created the (player, item) row
	// rather than updating an existing one
	BalanceCreated bool
	// NewAmount is the balance after the credit (zero for duplicates)
	NewAmount int64
}

// Store defines the interface for database operations
type Store interface {
	// GrantItem atomically deduplicates, credits the balance and appends an
	// audit event in one transaction. Returns domain.ErrPartitionMissing
	// when the event log has no partition covering input.EventTime.
	GrantItem(ctx context.Context, input GrantInput) (*GrantResult, error)
	// GetPlayerInventory returns all inventory rows for a player
	GetPlayerInventory(ctx context.Context, playerID int64) ([]schema.PlayerInventory, error)
	// EventLogPartitionExists reports whether the monthly partition covering
	// target exists, using a catalog lookup
	EventLogPartitionExists(ctx context.Context, target time.Time) (bool, error)
	// ProbeEventLogPartition is the speculative-insert fallback probe; the
	// sentinel write is always rolled back
	ProbeEventLogPartition(ctx context.Context, target time.Time) (bool, error)
	// EnsureEventLogPartition creates the monthly partition covering target
	// if it does not exist. Safe under concurrent callers for the same month.
	EnsureEventLogPartition(ctx context.Context, target time.Time) (PartitionOutcome, error)
}
