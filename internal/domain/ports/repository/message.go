package repository

import (
	"context"

	"carechat/internal/domain/model"
)

// MessageStore is the narrow persistence contract the relay depends on.
// Implementations own schema, connections and retention.
type MessageStore interface {
	// Create persists one immutable message.
	Create(ctx context.Context, m *model.ChatMessage) error

	// List returns up to limit messages for the user and mode, ascending by
	// creation time.
	List(ctx context.Context, userID string, mode model.Mode, limit int) ([]*model.ChatMessage, error)
}
