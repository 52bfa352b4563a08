// Package core defines the shared contracts that the graceful-shutdown
// coordination machinery (pkg/lifecycle, pkg/hooks) is built against: the
// opaque session key, the durable session store, the agent handle, and the
// per-execution request context. Nothing in this package knows about HTTP,
// a concrete LLM, or a concrete storage backend.
package core

// SessionKey is an opaque identifier for a durable execution context.
//
// SessionKey is immutable and compared by value; two keys constructed from
// the same string are equal.
type SessionKey string

// NewSessionKey wraps a raw string as a SessionKey.
func NewSessionKey(id string) SessionKey {
	return SessionKey(id)
}

// String returns the underlying identifier.
func (k SessionKey) String() string {
	return string(k)
}

// Empty reports whether the key carries no identifier.
func (k SessionKey) Empty() bool {
	return k == ""
}
