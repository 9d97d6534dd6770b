// Package dispatch routes decoded stream events to application handlers.
package dispatch

import (
	"fmt"
	"reflect"
	"sync"

	"hstrader/internal/event"
	"hstrader/internal/spread"
	"hstrader/models"
)

// InstrumentLookup resolves the definition used to adjust live quotes.
type InstrumentLookup interface {
	Lookup(id int64) *models.Symbol
}

// RegistrationError is returned when a handler cannot be registered.
type RegistrationError struct {
	Kind   string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("cannot register handler for %q: %s", e.Kind, e.Reason)
}

type handlers struct {
	connect    func()
	disconnect func()
	market     func(models.Tick)
	summary    func(models.Summary)
	positionPL func(models.PositionPL)
	err        func(models.ErrorEvent)
	order      func(models.Order, models.Status)
	position   func(models.Position, models.Status)
	deal       func(models.Deal, models.Status)
}

// Dispatcher holds at most one handler per event kind. Handlers run on the
// caller's goroutine and their panics are not recovered here.
type Dispatcher struct {
	mu          sync.RWMutex
	h           handlers
	instruments InstrumentLookup
}

// New creates a dispatcher. A nil lookup delivers quotes unadjusted.
func New(instruments InstrumentLookup) *Dispatcher {
	return &Dispatcher{instruments: instruments}
}

func (d *Dispatcher) OnConnect(h func()) { d.set(func(hs *handlers) { hs.connect = h }) }

func (d *Dispatcher) OnDisconnect(h func()) { d.set(func(hs *handlers) { hs.disconnect = h }) }

func (d *Dispatcher) OnMarket(h func(models.Tick)) { d.set(func(hs *handlers) { hs.market = h }) }

func (d *Dispatcher) OnSummary(h func(models.Summary)) { d.set(func(hs *handlers) { hs.summary = h }) }

func (d *Dispatcher) OnPositionPL(h func(models.PositionPL)) {
	d.set(func(hs *handlers) { hs.positionPL = h })
}

func (d *Dispatcher) OnError(h func(models.ErrorEvent)) { d.set(func(hs *handlers) { hs.err = h }) }

func (d *Dispatcher) OnOrder(h func(models.Order, models.Status)) {
	d.set(func(hs *handlers) { hs.order = h })
}

func (d *Dispatcher) OnPosition(h func(models.Position, models.Status)) {
	d.set(func(hs *handlers) { hs.position = h })
}

func (d *Dispatcher) OnDeal(h func(models.Deal, models.Status)) {
	d.set(func(hs *handlers) { hs.deal = h })
}

func (d *Dispatcher) set(apply func(*handlers)) {
	d.mu.Lock()
	apply(&d.h)
	d.mu.Unlock()
}

func (d *Dispatcher) snapshot() handlers {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.h
}

// Register attaches a handler by kind name. The name may be a canonical kind
// or one of its synonyms, and the handler must have the signature expected
// for that kind:
//
//	connect, disconnect                  func()
//	market                               func(models.Tick)
//	summary                              func(models.Summary)
//	position_pl                          func(models.PositionPL)
//	bad_request                          func(models.ErrorEvent)
//	order, position, deal                func(payload, models.Status)
//
// The last registration for a kind wins.
func (d *Dispatcher) Register(kind string, handler interface{}) error {
	k, err := event.ParseKind(kind)
	if err != nil {
		return &RegistrationError{Kind: kind, Reason: "unknown event kind"}
	}
	if handler == nil {
		return &RegistrationError{Kind: kind, Reason: "handler is nil"}
	}
	if v := reflect.ValueOf(handler); v.Kind() == reflect.Func && v.IsNil() {
		return &RegistrationError{Kind: kind, Reason: "handler is nil"}
	}

	ok := false
	switch k {
	case event.KindConnect, event.KindDisconnect:
		var h func()
		if h, ok = handler.(func()); ok {
			if k == event.KindConnect {
				d.OnConnect(h)
			} else {
				d.OnDisconnect(h)
			}
		}
	case event.KindMarket:
		var h func(models.Tick)
		if h, ok = handler.(func(models.Tick)); ok {
			d.OnMarket(h)
		}
	case event.KindSummary:
		var h func(models.Summary)
		if h, ok = handler.(func(models.Summary)); ok {
			d.OnSummary(h)
		}
	case event.KindPositionPL:
		var h func(models.PositionPL)
		if h, ok = handler.(func(models.PositionPL)); ok {
			d.OnPositionPL(h)
		}
	case event.KindError:
		var h func(models.ErrorEvent)
		if h, ok = handler.(func(models.ErrorEvent)); ok {
			d.OnError(h)
		}
	case event.KindOrder:
		var h func(models.Order, models.Status)
		if h, ok = handler.(func(models.Order, models.Status)); ok {
			d.OnOrder(h)
		}
	case event.KindPosition:
		var h func(models.Position, models.Status)
		if h, ok = handler.(func(models.Position, models.Status)); ok {
			d.OnPosition(h)
		}
	case event.KindDeal:
		var h func(models.Deal, models.Status)
		if h, ok = handler.(func(models.Deal, models.Status)); ok {
			d.OnDeal(h)
		}
	}
	if !ok {
		return &RegistrationError{
			Kind:   kind,
			Reason: fmt.Sprintf("handler of type %T does not match %s, want %s", handler, k, signature(k)),
		}
	}
	return nil
}

// MustRegister is like Register but panics on error. It suits handler
// wiring done once at program start.
func (d *Dispatcher) MustRegister(kind string, handler interface{}) {
	if err := d.Register(kind, handler); err != nil {
		panic(err)
	}
}

func signature(k event.Kind) string {
	switch k {
	case event.KindConnect, event.KindDisconnect:
		return "func()"
	case event.KindMarket:
		return "func(models.Tick)"
	case event.KindSummary:
		return "func(models.Summary)"
	case event.KindPositionPL:
		return "func(models.PositionPL)"
	case event.KindError:
		return "func(models.ErrorEvent)"
	case event.KindOrder:
		return "func(models.Order, models.Status)"
	case event.KindPosition:
		return "func(models.Position, models.Status)"
	case event.KindDeal:
		return "func(models.Deal, models.Status)"
	default:
		return "unknown"
	}
}

// Has reports whether a handler is registered for k.
func (d *Dispatcher) Has(k event.Kind) bool {
	h := d.snapshot()
	switch k {
	case event.KindConnect:
		return h.connect != nil
	case event.KindDisconnect:
		return h.disconnect != nil
	case event.KindMarket:
		return h.market != nil
	case event.KindSummary:
		return h.summary != nil
	case event.KindPositionPL:
		return h.positionPL != nil
	case event.KindError:
		return h.err != nil
	case event.KindOrder:
		return h.order != nil
	case event.KindPosition:
		return h.position != nil
	case event.KindDeal:
		return h.deal != nil
	default:
		return false
	}
}

func (d *Dispatcher) FireConnect() {
	if h := d.snapshot().connect; h != nil {
		h()
	}
}

func (d *Dispatcher) FireDisconnect() {
	if h := d.snapshot().disconnect; h != nil {
		h()
	}
}

// Dispatch delivers one decoded event. Kinds without a handler are ignored.
// A summary event fires the summary handler once and then the position P/L
// handler for every entry, in order.
func (d *Dispatcher) Dispatch(ev event.Event) {
	h := d.snapshot()

	switch e := ev.(type) {
	case event.Market:
		if h.market == nil {
			return
		}
		tick := e.Tick
		if d.instruments != nil {
			tick = spread.AdjustTick(tick, d.instruments.Lookup(tick.SymbolID))
		}
		h.market(tick)
	case event.Summary:
		if h.summary != nil {
			h.summary(e.Summary)
		}
		if h.positionPL != nil {
			for _, pl := range e.Positions {
				h.positionPL(pl)
			}
		}
	case event.Order:
		if h.order != nil {
			h.order(e.Order, e.Status)
		}
	case event.Position:
		if h.position != nil {
			h.position(e.Position, e.Status)
		}
	case event.Deal:
		if h.deal != nil {
			h.deal(e.Deal, e.Status)
		}
	case event.Error:
		if h.err != nil {
			h.err(e.Error)
		}
	}
}
