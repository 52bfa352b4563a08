package core

import (
	"context"
	"time"
)

// InterruptedMarkerField is the reserved session field under which an
// InterruptedMarker is stored.
const InterruptedMarkerField = "interrupted_state"

// InterruptedMarker records that the most recently aborted execution on a
// session ended without completing, and why. It is present in a session iff
// the most recent completed-or-aborted execution on that key ended in abort
// and no subsequent execution has yet cleared it (see pkg/hooks.Hook).
type InterruptedMarker struct {
	Reason        string    `json:"reason"`
	InterruptedAt time.Time `json:"interrupted_at"`
}

// NewInterruptedMarker stamps a marker with the given time.
func NewInterruptedMarker(reason string, now time.Time) InterruptedMarker {
	return InterruptedMarker{Reason: reason, InterruptedAt: now}
}

// SessionStore is a durable, key-scoped, field-granular record store. The
// core never inspects the value written under application-owned fields; it
// only reads and writes its own InterruptedMarkerField and asks the agent
// handle to serialize/deserialize the rest.
//
// Implementations must be safe for concurrent use. Durability semantics
// (fsync, replication, TTLs) are the backend's concern; the core only
// depends on visibility across process restarts on the same logical
// session id.
type SessionStore interface {
	// Save overwrites or inserts a field in a key's record.
	Save(ctx context.Context, key SessionKey, field string, value any) error
	// Get performs a typed read of a field, decoding into out. The second
	// return value is false when the field (or key) does not exist.
	Get(ctx context.Context, key SessionKey, field string, out any) (bool, error)
	// Delete removes a single field. A no-op if the field is absent.
	Delete(ctx context.Context, key SessionKey, field string) error
	// Exists reports whether any state exists under the key.
	Exists(ctx context.Context, key SessionKey) (bool, error)
}

// LoadInterruptedMarker reads the InterruptedMarker for key, if any.
func LoadInterruptedMarker(ctx context.Context, store SessionStore, key SessionKey) (InterruptedMarker, bool, error) {
	var marker InterruptedMarker
	found, err := store.Get(ctx, key, InterruptedMarkerField, &marker)
	if err != nil {
		return InterruptedMarker{}, false, err
	}
	return marker, found, nil
}

// SaveInterruptedMarker writes a fresh InterruptedMarker for key.
func SaveInterruptedMarker(ctx context.Context, store SessionStore, key SessionKey, marker InterruptedMarker) error {
	return store.Save(ctx, key, InterruptedMarkerField, marker)
}

// ClearInterruptedMarker removes the InterruptedMarker for key, if present.
func ClearInterruptedMarker(ctx context.Context, store SessionStore, key SessionKey) error {
	return store.Delete(ctx, key, InterruptedMarkerField)
}
