package core

import "errors"

var (
	// ErrNotAccepting is returned by Register when the lifecycle controller
	// is no longer RUNNING. Handlers must translate this into a
	// service-unavailable response to the client.
	ErrNotAccepting = errors.New("agentdrain: lifecycle controller is not accepting new executions")

	// ErrSessionNotFound indicates no state exists under the requested key.
	ErrSessionNotFound = errors.New("agentdrain: session not found")

	// ErrStoreFailure wraps a session-store operation failure. Callers at
	// the boundary log and swallow it; it must never block shutdown.
	ErrStoreFailure = errors.New("agentdrain: session store failure")

	// ErrInterruptFailure wraps a failure to deliver a cooperative
	// interrupt to an agent handle.
	ErrInterruptFailure = errors.New("agentdrain: agent interrupt failed")

	// ErrSerializationFailure wraps a failure to serialize agent state.
	ErrSerializationFailure = errors.New("agentdrain: agent state serialization failed")
)
