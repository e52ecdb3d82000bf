package campaign

import (
	"context"
)

// SessionStore persists the per-session checkpoint. Put is a compare-and-
// swap: the write succeeds only when the stored version is exactly one less
// than the incoming checkpoint's version (zero for a brand-new session).
// This makes the per-step read-modify-write atomic even when independent
// engine instances share a store.
type SessionStore interface {

	// Get loads the checkpoint for a session. Returns ErrSessionNotFound
	// when the session has never been started.
	Get(ctx context.Context, sessionID string) (*Checkpoint, error)

	// Put commits a checkpoint, enforcing the version CAS. Returns
	// ErrVersionConflict when another writer got there first.
	Put(ctx context.Context, checkpoint *Checkpoint) error

	// Delete removes a session's checkpoint. Deleting an unknown session is
	// not an error.
	Delete(ctx context.Context, sessionID string) error
}
