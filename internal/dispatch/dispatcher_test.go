package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hstrader/internal/cache"
	"hstrader/internal/event"
	"hstrader/internal/wire"
	"hstrader/models"
)

func TestRegisterRejectsWrongArity(t *testing.T) {
	d := New(nil)
	cases := []struct {
		kind    string
		handler interface{}
	}{
		{"connect", func(models.Tick) {}},
		{"disconnect", func(int) {}},
		{"market", func() {}},
		{"market", func(models.Tick, models.Status) {}},
		{"summary", func(models.PositionPL) {}},
		{"error", func() {}},
		{"pl", func(models.Summary) {}},
		{"order", func(models.Order) {}},
		{"position", func(models.Order, models.Status) {}},
		{"deal", "not a function"},
	}
	for _, c := range cases {
		err := d.Register(c.kind, c.handler)
		var regErr *RegistrationError
		require.True(t, errors.As(err, &regErr), "%s %T", c.kind, c.handler)
		assert.Equal(t, c.kind, regErr.Kind)
	}
	for _, k := range []event.Kind{event.KindConnect, event.KindMarket, event.KindOrder, event.KindDeal} {
		assert.False(t, d.Has(k))
	}
}

func TestRegisterRejectsUnknownKindAndNil(t *testing.T) {
	d := New(nil)
	var regErr *RegistrationError

	err := d.Register("tick", func(models.Tick) {})
	require.True(t, errors.As(err, &regErr))
	assert.Contains(t, regErr.Reason, "unknown")

	err = d.Register("market", nil)
	require.True(t, errors.As(err, &regErr))

	var nilFunc func(models.Tick)
	assert.Error(t, d.Register("market", nilFunc))
	assert.Panics(t, func() { d.MustRegister("stop_market_feed", func() {}) })
}

func TestRegisterSynonymsAndLastWins(t *testing.T) {
	d := New(nil)
	var first, second int
	require.NoError(t, d.Register("profit_loss", func(models.PositionPL) { first++ }))
	require.NoError(t, d.Register("PL", func(models.PositionPL) { second++ }))
	assert.True(t, d.Has(event.KindPositionPL))

	d.Dispatch(event.Summary{Positions: []models.PositionPL{{PositionID: 1}}})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	var got models.ErrorEvent
	require.NoError(t, d.Register("error", func(e models.ErrorEvent) { got = e }))
	d.Dispatch(event.Error{Error: models.ErrorEvent{Message: "bad"}})
	assert.Equal(t, "bad", got.Message)
}

func TestSummaryCompoundDispatchOrder(t *testing.T) {
	d := New(nil)
	var calls []string
	d.OnSummary(func(s models.Summary) { calls = append(calls, "summary") })
	d.OnPositionPL(func(pl models.PositionPL) {
		calls = append(calls, "pl:"+string(rune('a'+pl.PositionID)))
	})

	d.Dispatch(event.Summary{Positions: []models.PositionPL{{PositionID: 0}, {PositionID: 1}, {PositionID: 2}}})
	assert.Equal(t, []string{"summary", "pl:a", "pl:b", "pl:c"}, calls)
}

func TestSummaryWithOnlyPositionHandler(t *testing.T) {
	d := New(nil)
	var ids []int64
	d.OnPositionPL(func(pl models.PositionPL) { ids = append(ids, pl.PositionID) })

	ev, err := wire.Decode(wire.Frame{Data: []byte("summary,1,100007.30,0.00,100010.20,0.00,100013.30,0.00%,2.90,240910344,2.90,240910345,-1.10")})
	require.NoError(t, err)
	d.Dispatch(ev)
	assert.Equal(t, []int64{240910344, 240910345}, ids)
}

func TestStatusPassedToTwoArgHandlers(t *testing.T) {
	d := New(nil)
	var orderStatus, positionStatus, dealStatus models.Status
	require.NoError(t, d.Register("order", func(o models.Order, s models.Status) { orderStatus = s }))
	require.NoError(t, d.Register("position", func(p models.Position, s models.Status) { positionStatus = s }))
	require.NoError(t, d.Register("deal", func(dl models.Deal, s models.Status) { dealStatus = s }))

	d.Dispatch(event.Order{Status: models.StatusCanceled})
	d.Dispatch(event.Position{Status: models.StatusClosed})
	d.Dispatch(event.Deal{Status: models.StatusCreated})

	assert.Equal(t, models.StatusCanceled, orderStatus)
	assert.Equal(t, models.StatusClosed, positionStatus)
	assert.Equal(t, models.StatusCreated, dealStatus)
}

func TestMarketUnknownInstrumentIsUnmodified(t *testing.T) {
	instruments := cache.NewInstruments()
	d := New(instruments)
	var got models.Tick
	d.OnMarket(func(tick models.Tick) { got = tick })

	ev, err := wire.Decode(wire.Frame{Binary: true, Data: []byte("7,1.1000,1.1002,1.1010,1.0990,1.1001,1.0999,1500,1700000000")})
	require.NoError(t, err)
	d.Dispatch(ev)

	assert.Equal(t, ev.(event.Market).Tick, got)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got.Time)
}

func TestMarketAppliesCachedSpread(t *testing.T) {
	instruments := cache.NewInstruments()
	instruments.Put(models.Symbol{ID: 7, Digits: 4, SpreadBalance: 2})
	d := New(instruments)
	var got models.Tick
	d.OnMarket(func(tick models.Tick) { got = tick })

	d.Dispatch(event.Market{Tick: models.Tick{SymbolID: 7, Bid: 1.1, Ask: 1.1002}})
	assert.Equal(t, 1.1002, got.Bid)
	assert.Equal(t, 1.1004, got.Ask)
}

func TestDispatchWithoutHandlersIsNoop(t *testing.T) {
	d := New(nil)
	assert.NotPanics(t, func() {
		d.Dispatch(event.Market{})
		d.Dispatch(event.Summary{Positions: []models.PositionPL{{}}})
		d.Dispatch(event.Order{})
		d.Dispatch(event.Error{})
		d.FireConnect()
		d.FireDisconnect()
	})
}

func TestHandlerPanicPropagates(t *testing.T) {
	d := New(nil)
	d.OnOrder(func(models.Order, models.Status) { panic("handler failure") })
	assert.PanicsWithValue(t, "handler failure", func() { d.Dispatch(event.Order{}) })
}

func TestLifecycleHandlers(t *testing.T) {
	d := New(nil)
	var seq []string
	require.NoError(t, d.Register("connect", func() { seq = append(seq, "up") }))
	require.NoError(t, d.Register("disconnect", func() { seq = append(seq, "down") }))
	d.FireConnect()
	d.FireDisconnect()
	assert.Equal(t, []string{"up", "down"}, seq)
}
