package schema

import (
	"time"
)

// PlayerInventory represents the player_inventory table - one row per
// (player_id, item_code) holding the accumulated balance. The amount is only
// ever increased by this service; the row is never deleted.
type PlayerInventory struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// PlayerID identifies the owning player
	PlayerID int64 `gorm:"column:player_id;not null;uniqueIndex:uq_player_inventory_player_item,priority:1"`
	// InventoryType is the item category tag. Set on first grant; the
	// existing value is authoritative on subsequent grants.
	InventoryType string `gorm:"column:inventory_type;not null;type:text;default:consumable"`
	// ItemCode identifies the granted item
	ItemCode string `gorm:"column:item_code;not null;type:text;uniqueIndex:uq_player_inventory_player_item,priority:2"`
	// Amount is the accumulated quantity, non-negative and monotonically
	// non-decreasing under grants
	Amount int64 `gorm:"column:amount;not null;default:0"`
	// CreatedAt is the timestamp when this balance was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when this balance was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PlayerInventory model
func (PlayerInventory) TableName() string {
	return "player_inventory"
}
