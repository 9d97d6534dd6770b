package models

import (
	"fmt"
	"strings"
	"time"
)

// Side is the direction of an order, position or deal.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// ParseSide accepts "buy" or "sell" in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return SideBuy, nil
	case "sell":
		return SideSell, nil
	default:
		return 0, fmt.Errorf("invalid side %q, must be one of [buy sell]", s)
	}
}

// OrderType identifies how an order is executed.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeBuyLimit
	OrderTypeBuyStop
	OrderTypeSellLimit
	OrderTypeSellStop
	OrderTypeBuyStopLimit
	OrderTypeSellStopLimit
)

var orderTypeNames = map[string]OrderType{
	"market":          OrderTypeMarket,
	"buy_limit":       OrderTypeBuyLimit,
	"buy_stop":        OrderTypeBuyStop,
	"sell_limit":      OrderTypeSellLimit,
	"sell_stop":       OrderTypeSellStop,
	"buy_stop_limit":  OrderTypeBuyStopLimit,
	"sell_stop_limit": OrderTypeSellStopLimit,
}

func (t OrderType) String() string {
	for name, v := range orderTypeNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("order_type(%d)", int(t))
}

// ParseOrderType accepts the snake_case names used by the server, e.g. "buy_limit".
func ParseOrderType(s string) (OrderType, error) {
	if t, ok := orderTypeNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("invalid order type %q", s)
}

type ExpirationPolicy int

const (
	ExpirationGoodTillCanceled ExpirationPolicy = iota
	ExpirationDay
	ExpirationSpecifiedTime
	ExpirationSpecifiedDay
)

type OrderStatus int

const (
	OrderStatusStarted OrderStatus = iota
	OrderStatusPlaced
	OrderStatusPartiallyFilled
	OrderStatusFilled
	OrderStatusCanceled
	OrderStatusRejected
	OrderStatusExpired
)

type FillPolicy int

const (
	FillOrKill FillPolicy = iota
	ImmediateOrCancel
)

type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
)

type FillType int

const (
	FillFull FillType = iota
	FillPartial
)

type PositionStatus int

const (
	PositionOpen PositionStatus = iota
	PositionClosing
	PositionClosed
)

type TradeType int

const (
	TradeReal TradeType = iota
	TradeDemo
)

type ExecutionMode int
type SwapType int
type CalcType int
type SymbolStatus int
type TradeLevel int

// Status is the lifecycle tag carried by order, position and deal events.
type Status string

const (
	StatusCreated  Status = "created"
	StatusUpdated  Status = "updated"
	StatusDeleted  Status = "deleted"
	StatusClosed   Status = "closed"
	StatusCanceled Status = "canceled"
)

// Resolution is the bar width used by market history requests.
type Resolution string

const (
	Resolution1m  Resolution = "1m"
	Resolution5m  Resolution = "5m"
	Resolution15m Resolution = "15m"
	Resolution30m Resolution = "30m"
	Resolution1h  Resolution = "1h"
	Resolution4h  Resolution = "4h"
	Resolution1d  Resolution = "1d"
	Resolution1w  Resolution = "1w"
	Resolution1mo Resolution = "1mo"
)

var resolutionDurations = map[Resolution]time.Duration{
	Resolution1m:  time.Minute,
	Resolution5m:  5 * time.Minute,
	Resolution15m: 15 * time.Minute,
	Resolution30m: 30 * time.Minute,
	Resolution1h:  time.Hour,
	Resolution4h:  4 * time.Hour,
	Resolution1d:  24 * time.Hour,
	Resolution1w:  7 * 24 * time.Hour,
	Resolution1mo: 4 * 7 * 24 * time.Hour,
}

// Duration returns the width of one bar. A month is counted as four weeks.
func (r Resolution) Duration() time.Duration {
	return resolutionDurations[r]
}

// ParseResolution validates a resolution string such as "15m" or "1mo".
func ParseResolution(s string) (Resolution, error) {
	r := Resolution(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := resolutionDurations[r]; !ok {
		return "", fmt.Errorf("invalid resolution %q, available resolutions: 1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w, 1mo", s)
	}
	return r, nil
}

// MarketType selects the price side of a history request.
type MarketType string

const (
	MarketBid MarketType = "bid"
	MarketAsk MarketType = "ask"
)

func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(strings.ToLower(strings.TrimSpace(s))) {
	case MarketBid:
		return MarketBid, nil
	case MarketAsk:
		return MarketAsk, nil
	default:
		return "", fmt.Errorf("invalid market type %q, available types: bid, ask", s)
	}
}
