package models

import (
	"encoding/json"
	"fmt"
)

type EventName string

const (
	// client -> server
	EventNewUser     EventName = "newUser"
	EventSendMessage EventName = "sendMessage"

	// server -> client
	EventUsers          EventName = "users"
	EventError          EventName = "error"
	EventReceiveMessage EventName = "receiveMessage"
)

// Envelope is one WebSocket text frame: {"event": "...", "data": ...}.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event EventName, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, err
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("missing event name")
	}
	return env, nil
}
