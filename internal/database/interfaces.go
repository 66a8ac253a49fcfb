//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_database.go -package=mocks

package database

import (
	"context"

	"dm-relay/internal/models"
)

// MessageStore is the append-only log of direct messages.
type MessageStore interface {
	// AppendMessage persists msg and fills in its ID. A zero Timestamp is
	// replaced by the store's current time.
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
}

type Database interface {
	MessageStore
	Ping(ctx context.Context) error
	Close() error
}
