package repo

import (
	"context"

	"github.com/DevRickLin/msg-forwarder/internal/biz/domain"
)

// MessageStore is the message store interface
// Responsible for reading inbound rows from the local message database
type MessageStore interface {
	// FetchSince returns rows with cursor strictly greater than the given
	// cursor, ascending, at most limit rows. Noise is not filtered here.
	FetchSince(ctx context.Context, cursor int64, limit int) ([]domain.IncomingMessage, error)

	// MaxCursor returns the current largest cursor in the store
	MaxCursor(ctx context.Context) (int64, error)
}
