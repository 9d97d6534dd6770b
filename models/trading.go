package models

// Order mirrors the order record used by both the REST API and the stream.
type Order struct {
	ID               int64            `json:"id"`
	SymbolID         int64            `json:"symbol_id"`
	Type             OrderType        `json:"type"`
	Side             Side             `json:"side"`
	Status           OrderStatus      `json:"status"`
	Direction        Direction        `json:"direction"`
	Volume           *float64         `json:"volume,omitempty"`
	FilledVolume     *float64         `json:"filled_volume,omitempty"`
	ExternalVolume   *float64         `json:"external_volume,omitempty"`
	ContractSize     *float64         `json:"contract_size,omitempty"`
	TriggerPrice     *float64         `json:"trigger_price,omitempty"`
	OrderLimitPrice  *float64         `json:"order_limit_price,omitempty"`
	OrderPrice       *float64         `json:"order_price,omitempty"`
	OrderNewPrice    *float64         `json:"order_new_price,omitempty"`
	FilledPrice      *float64         `json:"filled_price,omitempty"`
	ExternalPrice    *float64         `json:"external_price,omitempty"`
	StopLoss         *float64         `json:"stop_loss,omitempty"`
	TakeProfit       *float64         `json:"take_profit,omitempty"`
	ExpirationPolicy ExpirationPolicy `json:"expiration_policy"`
	FillPolicy       FillPolicy       `json:"fill_policy"`
	FillType         FillType         `json:"fill_type"`
	ExternalID       *string          `json:"external_id,omitempty"`
	Comment          *string          `json:"comment,omitempty"`
	ExpiryAt         *int64           `json:"expiry_at,omitempty"`
	CreatedAt        *int64           `json:"created_at,omitempty"`
	UpdatedAt        *int64           `json:"updated_at,omitempty"`
	DoneAt           *int64           `json:"done_at,omitempty"`
}

type Position struct {
	ID           int64          `json:"id"`
	SymbolID     int64          `json:"symbol_id"`
	Side         Side           `json:"side"`
	Status       PositionStatus `json:"status"`
	Volume       float64        `json:"volume"`
	ContractSize float64        `json:"contract_size"`
	OpenPrice    float64        `json:"open_price"`
	ClosePrice   float64        `json:"close_price"`
	Profit       float64        `json:"profit"`
	StopLoss     *float64       `json:"stop_loss,omitempty"`
	TakeProfit   *float64       `json:"take_profit,omitempty"`
	Comment      string         `json:"comment,omitempty"`
	CreatedAt    int64          `json:"created_at"`
	UpdatedAt    int64          `json:"updated_at"`
}

type Deal struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	PositionID     int64     `json:"position_id"`
	SymbolID       int64     `json:"symbol_id"`
	Side           Side      `json:"side"`
	Direction      Direction `json:"direction"`
	Volume         float64   `json:"volume"`
	ClosedVolume   float64   `json:"closed_volume"`
	ExternalVolume float64   `json:"external_volume"`
	ContractSize   float64   `json:"contract_size"`
	OpenPrice      float64   `json:"open_price"`
	ClosePrice     float64   `json:"close_price"`
	ExternalPrice  float64   `json:"external_price"`
	ExternalID     string    `json:"external_id,omitempty"`
	Commission     float64   `json:"commission"`
	Swap           float64   `json:"swap"`
	Profit         float64   `json:"profit"`
	StopLoss       *float64  `json:"stop_loss,omitempty"`
	TakeProfit     *float64  `json:"take_profit,omitempty"`
	Comment        string    `json:"comment,omitempty"`
}

// CreateOrder is the payload of an order_create command.
type CreateOrder struct {
	SymbolID   int64     `json:"symbol_id"`
	Type       OrderType `json:"type"`
	Side       Side      `json:"side"`
	Volume     float64   `json:"volume"`
	OrderPrice *float64  `json:"order_price"`
	StopLoss   *float64  `json:"stop_loss"`
	TakeProfit *float64  `json:"take_profit"`
	Comment    *string   `json:"comment"`
}

// UpdateOrder is the payload of an order_update command.
type UpdateOrder struct {
	OrderID         int64      `json:"order_id"`
	Volume          *float64   `json:"volume"`
	OrderLimitPrice *float64   `json:"order_limit_price"`
	StopLoss        *float64   `json:"stop_loss"`
	TakeProfit      *float64   `json:"take_profit"`
	Type            *OrderType `json:"type"`
	Comment         *string    `json:"comment"`
}

// CancelOrder is the payload of an order_cancel command.
type CancelOrder struct {
	OrderID int64 `json:"order_id"`
}

// ClosePosition is the payload of a position_close command.
type ClosePosition struct {
	PositionID int64   `json:"position_id"`
	Volume     float64 `json:"volume"`
}

// UpdatePosition is the payload of a position_update command.
type UpdatePosition struct {
	PositionID int64    `json:"position_id"`
	StopLoss   *float64 `json:"stop_loss"`
	TakeProfit *float64 `json:"take_profit"`
	Comment    *string  `json:"comment"`
}
