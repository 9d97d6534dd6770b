package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Tick is one live quote for an instrument.
type Tick struct {
	SymbolID int64     `json:"symbol_id"`
	Bid      float64   `json:"bid"`
	Ask      float64   `json:"ask"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Open     float64   `json:"open"`
	Volume   float64   `json:"volume"`
	Time     time.Time `json:"time"`
}

// HistoryTick is one bar of market history.
type HistoryTick struct {
	Time   Timestamp `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Summary is the account snapshot pushed on the stream. UsedMargin and
// MarginLevel are kept exactly as sent, e.g. "0.00%".
type Summary struct {
	AccountID       string  `json:"account_id"`
	Balance         float64 `json:"balance"`
	Credit          float64 `json:"credit"`
	Equity          float64 `json:"equity"`
	UsedMargin      string  `json:"used_margin"`
	FreeMargin      float64 `json:"free_margin"`
	MarginLevel     string  `json:"margin_level"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
}

// PositionPL is the floating profit of a single open position.
type PositionPL struct {
	PositionID int64   `json:"position_id"`
	Profit     float64 `json:"profit"`
}

// ErrorEvent is a bad_request notification from the server.
type ErrorEvent struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// Timestamp decodes either epoch seconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.Unix(secs, 0).UTC()
			return nil
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		t.Time = parsed.UTC()
		return nil
	}
	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Time = time.Unix(int64(secs), 0).UTC()
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(t.Unix(), 10)), nil
}
