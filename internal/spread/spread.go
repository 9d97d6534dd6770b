// Package spread applies per-instrument spreads to prices and truncates them
// to the instrument precision. All arithmetic is done on decimals so values
// such as 1.2349999999 never round up at the last digit.
package spread

import (
	"github.com/shopspring/decimal"

	"hstrader/models"
)

// offsets returns the bid and ask offsets of an instrument:
// bid = spreadBalance * 10^-digits, ask = (spreadBalance + spread) * 10^-digits,
// with ask falling back to bid when no explicit spread is set.
func offsets(def models.Symbol) (decimal.Decimal, decimal.Decimal) {
	digits := clampDigits(def.Digits)
	balance := decimal.NewFromFloat(def.SpreadBalance)
	bid := balance.Shift(-digits)
	if def.Spread == nil {
		return bid, bid
	}
	ask := balance.Add(decimal.NewFromFloat(*def.Spread)).Shift(-digits)
	return bid, ask
}

// Offsets exposes the bid and ask offsets as floats.
func Offsets(def models.Symbol) (bid, ask float64) {
	b, a := offsets(def)
	return b.InexactFloat64(), a.InexactFloat64()
}

// Truncate cuts value to digits decimal places, toward zero.
func Truncate(value float64, digits int32) float64 {
	return truncate(decimal.NewFromFloat(value), digits)
}

func truncate(d decimal.Decimal, digits int32) float64 {
	return d.Truncate(clampDigits(digits)).InexactFloat64()
}

func shifted(value float64, offset decimal.Decimal, digits int32) float64 {
	return truncate(decimal.NewFromFloat(value).Add(offset), digits)
}

func clampDigits(digits int32) int32 {
	if digits < 0 {
		return 0
	}
	return digits
}

// AdjustTick applies the instrument spread to a live quote. Unknown
// instruments pass through unchanged. With an explicit spread the ask is
// derived from the adjusted bid plus the raw spread value.
func AdjustTick(tick models.Tick, def *models.Symbol) models.Tick {
	if def == nil {
		return tick
	}
	bidOff, askOff := offsets(*def)
	tick.Bid = shifted(tick.Bid, bidOff, def.Digits)
	if def.Spread != nil {
		tick.Ask = shifted(tick.Bid, decimal.NewFromFloat(*def.Spread), def.Digits)
	} else {
		tick.Ask = shifted(tick.Ask, askOff, def.Digits)
	}
	return tick
}

// AdjustBar applies the offset of the requested side to open, high, low and
// close. Volume is left alone.
func AdjustBar(bar models.HistoryTick, def *models.Symbol, side models.MarketType) models.HistoryTick {
	if def == nil {
		return bar
	}
	bidOff, askOff := offsets(*def)
	off := bidOff
	if side == models.MarketAsk {
		off = askOff
	}
	bar.Open = shifted(bar.Open, off, def.Digits)
	bar.High = shifted(bar.High, off, def.Digits)
	bar.Low = shifted(bar.Low, off, def.Digits)
	bar.Close = shifted(bar.Close, off, def.Digits)
	return bar
}

func AdjustBars(bars []models.HistoryTick, def *models.Symbol, side models.MarketType) []models.HistoryTick {
	out := make([]models.HistoryTick, len(bars))
	for i, bar := range bars {
		out[i] = AdjustBar(bar, def, side)
	}
	return out
}

// AdjustSymbol applies the spread to a catalogue snapshot. Symbols without an
// explicit spread are returned untouched. Ask snapshot fields are derived from
// the adjusted bid fields, and open/close receive the unscaled spread balance.
func AdjustSymbol(def models.Symbol) models.Symbol {
	if def.Spread == nil {
		return def
	}
	bidOff, askOff := offsets(def)
	d := def.Digits

	def.LastBid = shifted(def.LastBid, bidOff, d)
	def.LowBid = shifted(def.LowBid, bidOff, d)
	def.HighBid = shifted(def.HighBid, bidOff, d)

	def.LowAsk = shifted(def.LowBid, askOff, d)
	def.HighAsk = shifted(def.HighBid, askOff, d)
	def.LastAsk = shifted(def.LastBid, askOff, d)

	balance := decimal.NewFromFloat(def.SpreadBalance)
	def.Open = shifted(def.Open, balance, d)
	def.Close = shifted(def.Close, balance, d)
	return def
}

func AdjustSymbols(defs []models.Symbol) []models.Symbol {
	out := make([]models.Symbol, len(defs))
	for i, def := range defs {
		out[i] = AdjustSymbol(def)
	}
	return out
}
