// Package wire converts raw stream frames into typed events and encodes
// outbound commands.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"hstrader/internal/event"
	"hstrader/models"
)

// ErrDecode wraps every failure to turn a frame into an event.
var ErrDecode = errors.New("wire: decode failed")

const (
	summaryPrefix  = "summary"
	typeBadRequest = "bad_request"

	tickFields    = 9
	summaryFields = 9
)

// Frame is one message read from the socket.
type Frame struct {
	Binary bool
	Data   []byte
}

func decodeErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDecode, fmt.Sprintf(format, args...))
}

// Decode classifies a frame and parses it. Binary frames are always ticks,
// text frames starting with "summary" are account summaries and everything
// else is a JSON envelope.
func Decode(f Frame) (event.Event, error) {
	if f.Binary {
		tick, err := DecodeTick(f.Data)
		if err != nil {
			return nil, err
		}
		return event.Market{Tick: tick}, nil
	}
	if bytes.HasPrefix(f.Data, []byte(summaryPrefix)) {
		summary, positions, err := DecodeSummary(string(f.Data))
		if err != nil {
			return nil, err
		}
		return event.Summary{Summary: summary, Positions: positions}, nil
	}
	return decodeEnvelope(f.Data)
}

// DecodeTick parses "id,bid,ask,high,low,close,open,volume,time".
func DecodeTick(data []byte) (models.Tick, error) {
	parts := strings.Split(string(data), ",")
	if len(parts) < tickFields {
		return models.Tick{}, decodeErr("tick has %d fields, want %d", len(parts), tickFields)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return models.Tick{}, decodeErr("tick symbol id %q", parts[0])
	}
	var prices [7]float64
	for i := range prices {
		v, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return models.Tick{}, decodeErr("tick field %d %q", i+1, parts[i+1])
		}
		prices[i] = v
	}
	ts, err := strconv.ParseInt(parts[8], 10, 64)
	if err != nil {
		return models.Tick{}, decodeErr("tick time %q", parts[8])
	}

	return models.Tick{
		SymbolID: id,
		Bid:      prices[0],
		Ask:      prices[1],
		High:     prices[2],
		Low:      prices[3],
		Close:    prices[4],
		Open:     prices[5],
		Volume:   prices[6],
		Time:     time.Unix(ts, 0).UTC(),
	}, nil
}

// DecodeSummary parses a summary line and its trailing position_id,pl pairs.
func DecodeSummary(text string) (models.Summary, []models.PositionPL, error) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) < summaryFields || parts[0] != summaryPrefix {
		return models.Summary{}, nil, decodeErr("malformed summary %q", text)
	}
	if (len(parts)-summaryFields)%2 != 0 {
		return models.Summary{}, nil, decodeErr("summary has an unpaired position entry")
	}

	summary := models.Summary{
		AccountID:       parts[1],
		Balance:         parseNumber(parts[2]),
		Credit:          parseNumber(parts[3]),
		Equity:          parseNumber(parts[4]),
		UsedMargin:      parts[5],
		FreeMargin:      parseNumber(parts[6]),
		MarginLevel:     parts[7],
		TotalProfitLoss: parseNumber(parts[8]),
	}

	positions := make([]models.PositionPL, 0, (len(parts)-summaryFields)/2)
	for i := summaryFields; i < len(parts); i += 2 {
		id, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		if err != nil {
			return models.Summary{}, nil, decodeErr("invalid position id %q", parts[i])
		}
		positions = append(positions, models.PositionPL{PositionID: id, Profit: parseNumber(parts[i+1])})
	}
	return summary, positions, nil
}

// parseNumber returns 0 for values that are not valid floats.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

var statusSuffixes = map[string]models.Status{
	"create": models.StatusCreated,
	"update": models.StatusUpdated,
	"delete": models.StatusDeleted,
	"close":  models.StatusClosed,
	"cancel": models.StatusCanceled,
}

func decodeEnvelope(data []byte) (event.Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, decodeErr("invalid json")
	}
	typ := gjson.GetBytes(data, "type")
	if typ.Type != gjson.String {
		return nil, decodeErr("envelope without a type")
	}
	payload := gjson.GetBytes(data, "payload")

	if typ.Str == typeBadRequest {
		return decodeError(payload)
	}

	idx := strings.LastIndex(typ.Str, "_")
	if idx <= 0 {
		return nil, decodeErr("unsupported type %q", typ.Str)
	}
	kind, suffix := typ.Str[:idx], typ.Str[idx+1:]
	status, ok := statusSuffixes[suffix]
	if !ok {
		return nil, decodeErr("unsupported status in %q", typ.Str)
	}
	if !payload.IsObject() {
		return nil, decodeErr("%s payload is not an object", typ.Str)
	}
	raw := []byte(payload.Raw)

	switch kind {
	case "order":
		var o models.Order
		if err := json.Unmarshal(raw, &o); err != nil {
			return nil, decodeErr("order payload: %v", err)
		}
		return event.Order{Order: o, Status: status}, nil
	case "position":
		var p models.Position
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, decodeErr("position payload: %v", err)
		}
		return event.Position{Position: p, Status: status}, nil
	case "deal":
		var d models.Deal
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, decodeErr("deal payload: %v", err)
		}
		return event.Deal{Deal: d, Status: status}, nil
	default:
		return nil, decodeErr("unsupported type %q", typ.Str)
	}
}

// decodeError accepts either an object payload or a bare message string.
func decodeError(payload gjson.Result) (event.Event, error) {
	var e models.ErrorEvent
	switch {
	case payload.IsObject():
		if err := json.Unmarshal([]byte(payload.Raw), &e); err != nil {
			return nil, decodeErr("bad_request payload: %v", err)
		}
	case payload.Type == gjson.String:
		e.Message = payload.Str
	}
	return event.Error{Error: e}, nil
}
