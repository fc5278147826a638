package repo

import "github.com/DevRickLin/msg-forwarder/internal/biz/domain"

// StateRepo is the durable state interface
type StateRepo interface {
	// Load returns the persisted state, or an empty state when nothing
	// usable is on disk. It never fails.
	Load() *domain.DaemonState

	// Save persists the full state atomically
	Save(state *domain.DaemonState) error

	// Path returns the backing file path
	Path() string
}
