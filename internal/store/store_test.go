package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playware/inventory-service/internal/domain"
	"github.com/playware/inventory-service/internal/store/schema"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildGrantInput creates a grant input with a token, targeting eventTime
func buildGrantInput(playerID int64, itemCode string, amount int64, extTrxID string, eventTime time.Time) GrantInput {
	return GrantInput{
		PlayerID:  playerID,
		ItemCode:  itemCode,
		Amount:    amount,
		ExtTrxID:  &extTrxID,
		EventTime: eventTime,
	}
}

// ensurePartitionFor provisions the monthly partition covering eventTime so a
// grant inside the test transaction has somewhere to land
func ensurePartitionFor(t *testing.T, store Store, eventTime time.Time) {
	t.Helper()
	_, err := store.EnsureEventLogPartition(context.Background(), eventTime)
	require.NoError(t, err)
}

// =============================================================================
// Grant Transaction Tests
// =============================================================================

func testGrantFreshToken(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	result, err := store.GrantItem(ctx, buildGrantInput(42, "bfg", 3, "trx-0001", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, result.Status)
	assert.True(t, result.BalanceCreated, "first grant for the item should create the balance row")
	assert.Equal(t, int64(3), result.NewAmount)

	// Balance row
	rows, err := store.GetPlayerInventory(ctx, 42)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bfg", rows[0].ItemCode)
	assert.Equal(t, int64(3), rows[0].Amount)
	assert.Equal(t, domain.DefaultInventoryType, rows[0].InventoryType)

	// Audit event with the granted amount and structured meta
	pg := store.(*pgStore)
	var events []schema.PlayerEventLog
	require.NoError(t, pg.db.Where("player_id = ?", 42).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeInventoryGranted, events[0].EventType)
	assert.Equal(t, int64(3), events[0].EventValueInt)
	require.NotNil(t, events[0].ExtTrxID)
	assert.Equal(t, "trx-0001", *events[0].ExtTrxID)

	var meta schema.EventLogMeta
	require.NoError(t, json.Unmarshal(events[0].MetaData, &meta))
	assert.Equal(t, "bfg", meta.ItemCode)
	assert.Equal(t, domain.DefaultInventoryType, meta.InventoryType)
}

func testGrantDuplicateToken(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	first, err := store.GrantItem(ctx, buildGrantInput(7, "potion", 5, "trx-dup", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, first.Status)

	// Same player, same token: suppressed, even with a different amount
	second, err := store.GrantItem(ctx, buildGrantInput(7, "potion", 500, "trx-dup", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantDuplicate, second.Status)

	rows, err := store.GetPlayerInventory(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0].Amount, "duplicate must not change the balance")

	// Exactly one audit event
	pg := store.(*pgStore)
	var count int64
	require.NoError(t, pg.db.Model(&schema.PlayerEventLog{}).Where("player_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func testGrantTokenScopedPerPlayer(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	// The same token under different players deduplicates independently
	first, err := store.GrantItem(ctx, buildGrantInput(100, "gold", 10, "shared-token", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, first.Status)

	second, err := store.GrantItem(ctx, buildGrantInput(101, "gold", 10, "shared-token", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, second.Status)
}

func testGrantWithoutToken(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	input := GrantInput{PlayerID: 8, ItemCode: "arrow", Amount: 2, EventTime: eventTime}

	// No token means no deduplication: replays accumulate
	for i := 0; i < 3; i++ {
		result, err := store.GrantItem(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, GrantApplied, result.Status)
	}

	rows, err := store.GetPlayerInventory(ctx, 8)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(6), rows[0].Amount)
}

func testGrantAccumulates(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	first, err := store.GrantItem(ctx, buildGrantInput(9, "gem", 4, "trx-a", eventTime))
	require.NoError(t, err)
	assert.True(t, first.BalanceCreated)
	assert.Equal(t, int64(4), first.NewAmount)

	second, err := store.GrantItem(ctx, buildGrantInput(9, "gem", 6, "trx-b", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, second.Status)
	assert.False(t, second.BalanceCreated, "second grant updates the existing row")
	assert.Equal(t, int64(10), second.NewAmount)
}

func testGrantInventoryType(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	input := buildGrantInput(10, "sword", 1, "trx-type-a", eventTime)
	input.InventoryType = "equipment"
	_, err := store.GrantItem(ctx, input)
	require.NoError(t, err)

	// A later grant with a different type does not rewrite the stored one
	input2 := buildGrantInput(10, "sword", 1, "trx-type-b", eventTime)
	input2.InventoryType = "consumable"
	_, err = store.GrantItem(ctx, input2)
	require.NoError(t, err)

	rows, err := store.GetPlayerInventory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "equipment", rows[0].InventoryType)
	assert.Equal(t, int64(2), rows[0].Amount)
}

func testGrantInvalidAmount(t *testing.T, store Store) {
	ctx := context.Background()

	for _, amount := range []int64{0, -1, -100} {
		_, err := store.GrantItem(ctx, GrantInput{PlayerID: 11, ItemCode: "gold", Amount: amount})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount, "amount %d must be rejected", amount)
	}

	rows, err := store.GetPlayerInventory(ctx, 11)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func testGrantPartitionMissing(t *testing.T, store Store) {
	ctx := context.Background()
	// No partition provisioned for this month
	eventTime := time.Date(2031, time.July, 4, 12, 0, 0, 0, time.UTC)

	_, err := store.GrantItem(ctx, buildGrantInput(12, "gold", 5, "trx-missing", eventTime))
	require.ErrorIs(t, err, domain.ErrPartitionMissing)

	// The failed transaction must leave no trace: the same token succeeds
	// after the partition is provisioned
	ensurePartitionFor(t, store, eventTime)
	result, err := store.GrantItem(ctx, buildGrantInput(12, "gold", 5, "trx-missing", eventTime))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, result.Status)
	assert.Equal(t, int64(5), result.NewAmount)
}

func testGetPlayerInventory(t *testing.T, store Store) {
	ctx := context.Background()
	eventTime := time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)
	ensurePartitionFor(t, store, eventTime)

	for i, item := range []string{"zephyr", "arrow", "gold"} {
		_, err := store.GrantItem(ctx, buildGrantInput(13, item, int64(i+1), fmt.Sprintf("trx-inv-%d", i), eventTime))
		require.NoError(t, err)
	}

	rows, err := store.GetPlayerInventory(ctx, 13)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Ordered by item code
	assert.Equal(t, "arrow", rows[0].ItemCode)
	assert.Equal(t, "gold", rows[1].ItemCode)
	assert.Equal(t, "zephyr", rows[2].ItemCode)

	// Unknown player yields an empty, non-nil result
	empty, err := store.GetPlayerInventory(ctx, 999999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// =============================================================================
// Partition Management Tests
// =============================================================================

func testEnsurePartitionIdempotent(t *testing.T, store Store) {
	ctx := context.Background()
	target := time.Date(2027, time.May, 20, 8, 0, 0, 0, time.UTC)

	outcome, err := store.EnsureEventLogPartition(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, PartitionCreated, outcome)

	// Second call for any instant in the same month is a no-op
	outcome, err = store.EnsureEventLogPartition(ctx, time.Date(2027, time.May, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, PartitionAlreadyExists, outcome)
}

func testPartitionProbes(t *testing.T, store Store) {
	ctx := context.Background()
	target := time.Date(2028, time.September, 10, 0, 0, 0, 0, time.UTC)

	exists, err := store.EventLogPartitionExists(ctx, target)
	require.NoError(t, err)
	assert.False(t, exists)

	probed, err := store.ProbeEventLogPartition(ctx, target)
	require.NoError(t, err)
	assert.False(t, probed)

	ensurePartitionFor(t, store, target)

	exists, err = store.EventLogPartitionExists(ctx, target)
	require.NoError(t, err)
	assert.True(t, exists)

	probed, err = store.ProbeEventLogPartition(ctx, target)
	require.NoError(t, err)
	assert.True(t, probed)

	// The speculative probe must not leave its sentinel row behind
	pg := store.(*pgStore)
	var count int64
	require.NoError(t, pg.db.Model(&schema.PlayerEventLog{}).Where("player_id = ?", domain.DefaultSentinelPlayerID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func testPartitionMonthBoundaries(t *testing.T, store Store) {
	ctx := context.Background()

	// December partition covers its last instant but not January 1st
	december := time.Date(2029, time.December, 25, 0, 0, 0, 0, time.UTC)
	ensurePartitionFor(t, store, december)

	lastInstant := time.Date(2029, time.December, 31, 23, 59, 59, 999999000, time.UTC)
	result, err := store.GrantItem(ctx, buildGrantInput(14, "gold", 1, "trx-dec", lastInstant))
	require.NoError(t, err)
	assert.Equal(t, GrantApplied, result.Status)

	january := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = store.GrantItem(ctx, buildGrantInput(14, "gold", 1, "trx-jan", january))
	assert.ErrorIs(t, err, domain.ErrPartitionMissing)
}

// =============================================================================
// Test Runner - runs all tests against a given store implementation
// =============================================================================

func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"GrantFreshToken", testGrantFreshToken},
		{"GrantDuplicateToken", testGrantDuplicateToken},
		{"GrantTokenScopedPerPlayer", testGrantTokenScopedPerPlayer},
		{"GrantWithoutToken", testGrantWithoutToken},
		{"GrantAccumulates", testGrantAccumulates},
		{"GrantInventoryType", testGrantInventoryType},
		{"GrantInvalidAmount", testGrantInvalidAmount},
		{"GrantPartitionMissing", testGrantPartitionMissing},
		{"GetPlayerInventory", testGetPlayerInventory},
		{"EnsurePartitionIdempotent", testEnsurePartitionIdempotent},
		{"PartitionProbes", testPartitionProbes},
		{"PartitionMonthBoundaries", testPartitionMonthBoundaries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
