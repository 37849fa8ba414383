package domain

const (
	// EventTypeInventoryGranted is the event_type written for every grant.
	EventTypeInventoryGranted = "inventory_granted"

	// DefaultInventoryType is used when a grant request omits inventory_type.
	DefaultInventoryType = "consumable"

	// DefaultSentinelPlayerID is the reserved player ID used by the
	// speculative partition probe. Real player IDs are positive, so the
	// sentinel can never collide with application data. Configurable via
	// partition.sentinel_player_id.
	DefaultSentinelPlayerID int64 = -1
)
