package credentials

import (
	"context"
	"errors"
)

// ErrPlaintextRefused is returned by stores configured to never persist secrets.
var ErrPlaintextRefused = errors.New("credentials: store refuses to persist identifier/secret credentials")

// Store keeps at most one Credential per session id. Implementations must be
// safe for concurrent use across sessions.
type Store interface {
	// Save overwrites any credential saved under sessionId.
	Save(ctx context.Context, sessionId string, credential Credential) error
	// Load returns found == false when nothing (or nothing unexpired) is saved.
	Load(ctx context.Context, sessionId string) (credential Credential, found bool, err error)
	// Clear is idempotent.
	Clear(ctx context.Context, sessionId string) error
}

// Slot is a Store narrowed to a single session, it is the only handle the
// workflows get to the credential.
type Slot struct {
	store     Store
	sessionId string
}

func NewSlot(store Store, sessionId string) Slot {
	return Slot{store: store, sessionId: sessionId}
}

func (s Slot) SessionId() string {
	return s.sessionId
}

func (s Slot) Save(ctx context.Context, credential Credential) error {
	return s.store.Save(ctx, s.sessionId, credential)
}

func (s Slot) Load(ctx context.Context) (Credential, bool, error) {
	return s.store.Load(ctx, s.sessionId)
}

func (s Slot) Clear(ctx context.Context) error {
	return s.store.Clear(ctx, s.sessionId)
}
