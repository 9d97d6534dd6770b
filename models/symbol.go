package models

// Symbol is an instrument definition as returned by the symbol catalogue.
// Digits, SpreadBalance and Spread drive price adjustment; the bid/ask and
// open/close fields are a snapshot taken when the catalogue was fetched.
type Symbol struct {
	ID                    int64         `json:"id"`
	Symbol                string        `json:"symbol"`
	ISIN                  string        `json:"isin,omitempty"`
	Desc                  string        `json:"desc,omitempty"`
	BaseCurrency          string        `json:"base_currency,omitempty"`
	QuoteCurrency         string        `json:"quote_currency,omitempty"`
	Leverage              int           `json:"leverage,omitempty"`
	MarginInitial         float64       `json:"margin_initial,omitempty"`
	MarginMaintenance     float64       `json:"margin_maintenance,omitempty"`
	MarginBuy             float64       `json:"margin_buy,omitempty"`
	MarginSell            float64       `json:"margin_sell,omitempty"`
	MaintenanceMarginBuy  float64       `json:"maintenance_margin_buy,omitempty"`
	MaintenanceMarginSell float64       `json:"maintenance_margin_sell,omitempty"`
	Enabled               bool          `json:"enabled"`
	TradeLevel            TradeLevel    `json:"trade_level"`
	Execution             ExecutionMode `json:"execution"`
	Filling               FillPolicy    `json:"filling"`
	Expiration            string        `json:"expiration,omitempty"`
	MinValue              float64       `json:"min_value,omitempty"`
	MaxValue              float64       `json:"max_value,omitempty"`
	Step                  float64       `json:"step,omitempty"`
	SwapMode              int           `json:"swap_mode,omitempty"`
	SwapType              SwapType      `json:"swap_type"`
	SwapLong              float64       `json:"swap_long,omitempty"`
	SwapShort             float64       `json:"swap_short,omitempty"`
	Digits                int32         `json:"digits"`
	Spread                *float64      `json:"spread"`
	SpreadBalance         float64       `json:"spread_balance"`
	StopLevel             float64       `json:"stop_level,omitempty"`
	Calculation           CalcType      `json:"calculation"`
	ContractSize          int64         `json:"contract_size,omitempty"`
	QuoteSessions         string        `json:"quote_sessions,omitempty"`
	TradeSessions         string        `json:"trade_sessions,omitempty"`
	Status                SymbolStatus  `json:"status"`
	LastBid               float64       `json:"last_bid"`
	LastAsk               float64       `json:"last_ask"`
	Open                  float64       `json:"open"`
	Close                 float64       `json:"close"`
	HighBid               float64       `json:"high_bid"`
	LowBid                float64       `json:"low_bid"`
	HighAsk               float64       `json:"high_ask"`
	LowAsk                float64       `json:"low_ask"`
}

// HasSpread reports whether an explicit spread is configured for the instrument.
func (s Symbol) HasSpread() bool {
	return s.Spread != nil
}
