package schema

import "time"

// PlayerInventoryTrx represents the player_inventory_trx table - the
// idempotency ledger. At most one row exists per (player_id, ext_trx_id); the
// database-level unique constraint is what guarantees that exactly one of any
// set of concurrent duplicate grants is applied.
type PlayerInventoryTrx struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// PlayerID identifies the player the transaction token belongs to
	PlayerID int64 `gorm:"column:player_id;not null;uniqueIndex:uq_player_inventory_trx,priority:1"`
	// ExtTrxID is the client-supplied opaque transaction token
	ExtTrxID string `gorm:"column:ext_trx_id;not null;type:text;uniqueIndex:uq_player_inventory_trx,priority:2"`
	// CreatedAt is the timestamp when the token was first seen
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PlayerInventoryTrx model
func (PlayerInventoryTrx) TableName() string {
	return "player_inventory_trx"
}
