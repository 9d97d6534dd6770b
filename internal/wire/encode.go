package wire

import (
	"encoding/json"
	"fmt"
)

// Outbound commands understood by the server.
const (
	CommandStartMarketFeed = "start_market_feed"
	CommandStopMarketFeed  = "stop_market_feed"
	CommandOrderCreate     = "order_create"
	CommandOrderUpdate     = "order_update"
	CommandOrderCancel     = "order_cancel"
	CommandPositionClose   = "position_close"
	CommandPositionUpdate  = "position_update"
)

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Encode builds {"type": command, "payload": payload}. A nil payload is sent
// as an empty object.
func Encode(command string, payload interface{}) ([]byte, error) {
	if command == "" {
		return nil, fmt.Errorf("wire: empty command")
	}
	if payload == nil {
		payload = struct{}{}
	}
	data, err := json.Marshal(envelope{Type: command, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", command, err)
	}
	return data, nil
}
