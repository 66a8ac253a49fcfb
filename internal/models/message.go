package models

import "time"

// ChatMessage is the persisted record of one direct message.
type ChatMessage struct {
	ID        int64     `json:"id,omitempty"`
	Sender    string    `json:"sender"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SendMessage is the payload of both sendMessage and receiveMessage events.
type SendMessage struct {
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

func (m SendMessage) ToChatMessage(now time.Time) *ChatMessage {
	return &ChatMessage{
		Sender:    m.Sender,
		Recipient: m.Recipient,
		Message:   m.Message,
		Timestamp: now,
	}
}
