package dto

// GrantRequest is the body of POST /v1/inventory/grant. Required fields are
// pointers so that absent and zero values can be told apart during validation.
type GrantRequest struct {
	PlayerID      *int64  `json:"player_id"`
	ItemCode      *string `json:"item_code"`
	Amount        *int64  `json:"amount"`
	ExtTrxID      *string `json:"ext_trx_id"`
	InventoryType string  `json:"inventory_type"`
}

// InventoryRequest is the body of POST /v1/inventory/get
type InventoryRequest struct {
	PlayerID *int64 `json:"player_id"`
}
