package core

import "encoding/json"

// Envelope is the wire shape of every event in both directions.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeEvent marshals payload once so that a broadcast reuses the same frame
// for every member.
func EncodeEvent(event string, payload any) (Frame, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Type: event, Data: data})
}
