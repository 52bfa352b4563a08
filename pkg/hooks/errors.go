package hooks

import (
	"fmt"

	"github.com/agentdrain/agentdrain/pkg/core"
)

// AbortedError is the distinguished failure an agent raises on its output
// stream when a hook aborts an event. It carries exactly what the spec
// requires the handler to relay to the client: the reason, the session key
// to retry with, and whether a checkpoint was actually persisted.
type AbortedError struct {
	Reason      string
	SessionKey  core.SessionKey
	StateSaved  bool
	saveFailure error
}

func (e *AbortedError) Error() string {
	if e.saveFailure != nil {
		return fmt.Sprintf("agentdrain: execution aborted (%s): checkpoint failed: %v", e.Reason, e.saveFailure)
	}
	return fmt.Sprintf("agentdrain: execution aborted (%s)", e.Reason)
}

// Unwrap exposes the underlying checkpoint failure, if any, for errors.Is/As.
func (e *AbortedError) Unwrap() error {
	return e.saveFailure
}
