package schema

import (
	"time"

	"gorm.io/datatypes"
)

// PlayerEventLog represents the log_player_event table - the append-only
// audit log, range-partitioned by month on event_time. Rows are never updated
// or deleted by this service.
type PlayerEventLog struct {
	// ID is the internal database primary key (composite with EventTime on
	// the partitioned table)
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// PlayerID identifies the player the event belongs to
	PlayerID int64 `gorm:"column:player_id;not null"`
	// EventType identifies the kind of event ("inventory_granted" for grants)
	EventType string `gorm:"column:event_type;not null;type:text"`
	// EventValueInt is the integer payload of the event (the granted amount)
	EventValueInt int64 `gorm:"column:event_value_int;not null;default:0"`
	// MetaData carries structured event context (inventory_type, item_code)
	MetaData datatypes.JSON `gorm:"column:meta_data;type:jsonb"`
	// ExtTrxID is the client transaction token of the originating request, if any
	ExtTrxID *string `gorm:"column:ext_trx_id;type:text"`
	// EventTime places the event in exactly one monthly partition
	EventTime time.Time `gorm:"column:event_time;primaryKey;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PlayerEventLog model
func (PlayerEventLog) TableName() string {
	return "log_player_event"
}

// EventLogMeta is the meta_data payload written for grant events
type EventLogMeta struct {
	InventoryType string `json:"inventory_type"`
	ItemCode      string `json:"item_code"`
}
