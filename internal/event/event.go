// Package event defines the closed set of stream event kinds and the typed
// events produced by the wire decoder.
package event

import (
	"fmt"
	"strings"

	"hstrader/models"
)

// Kind enumerates every event an application can subscribe to.
type Kind int

const (
	KindConnect Kind = iota + 1
	KindDisconnect
	KindOrder
	KindPosition
	KindDeal
	KindSummary
	KindMarket
	KindPositionPL
	KindError
)

var kindNames = map[Kind]string{
	KindConnect:    "connect",
	KindDisconnect: "disconnect",
	KindOrder:      "order",
	KindPosition:   "position",
	KindDeal:       "deal",
	KindSummary:    "summary",
	KindMarket:     "market",
	KindPositionPL: "position_pl",
	KindError:      "bad_request",
}

// synonyms are resolved once, when a name is parsed.
var synonyms = map[string]Kind{
	"error":                KindError,
	"pl":                   KindPositionPL,
	"profit":               KindPositionPL,
	"loss":                 KindPositionPL,
	"profit_loss":          KindPositionPL,
	"position_profit_loss": KindPositionPL,
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames)+len(synonyms))
	for k, name := range kindNames {
		m[name] = k
	}
	for name, k := range synonyms {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind resolves a canonical name or a synonym, ignoring case.
func ParseKind(name string) (Kind, error) {
	if k, ok := kindsByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("unknown event kind %q", name)
}

// Event is implemented by every decoded stream event.
type Event interface {
	Kind() Kind
}

type Market struct {
	Tick models.Tick
}

// Summary carries an account summary together with the per-position P/L
// entries that arrived in the same frame, in arrival order.
type Summary struct {
	Summary   models.Summary
	Positions []models.PositionPL
}

type Order struct {
	Order  models.Order
	Status models.Status
}

type Position struct {
	Position models.Position
	Status   models.Status
}

type Deal struct {
	Deal   models.Deal
	Status models.Status
}

type Error struct {
	Error models.ErrorEvent
}

func (Market) Kind() Kind   { return KindMarket }
func (Summary) Kind() Kind  { return KindSummary }
func (Order) Kind() Kind    { return KindOrder }
func (Position) Kind() Kind { return KindPosition }
func (Deal) Kind() Kind     { return KindDeal }
func (Error) Kind() Kind    { return KindError }
