package dto

// OKResponse is the success envelope: {status: "OK", data: {...}}
type OKResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// NewOKResponse wraps data in the success envelope
func NewOKResponse(data any) OKResponse {
	if data == nil {
		data = struct{}{}
	}
	return OKResponse{Status: "OK", Data: data}
}

// InventoryItem is one row of a player's inventory
type InventoryItem struct {
	ID            int64  `json:"id"`
	InventoryType string `json:"inventory_type"`
	ItemCode      string `json:"item_code"`
	Amount        int64  `json:"amount"`
}

// InventoryData is the data payload of POST /v1/inventory/get
type InventoryData struct {
	PlayerID  int64           `json:"player_id"`
	Inventory []InventoryItem `json:"inventory"`
}
