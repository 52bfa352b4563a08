package core

import "context"

// AgentHandle is the minimal surface the coordination core needs from a
// concrete agent implementation. The reasoning loop, tool execution, and LLM
// client behind it are out of scope for this module; AgentHandle is the
// seam across which the core and the agent cooperate.
type AgentHandle interface {
	// Interrupt asynchronously requests that the agent stop at its next
	// safe point. It is cooperative: the agent polls its interrupt status
	// between reasoning/acting steps. Implementations must not block.
	Interrupt(ctx context.Context) error

	// SerializeTo synchronously snapshots the agent's memory and reasoning
	// state into store under key.
	SerializeTo(ctx context.Context, store SessionStore, key SessionKey) error

	// LoadFrom restores agent state previously written by SerializeTo.
	// Returns ErrSessionNotFound if nothing was stored under key.
	LoadFrom(ctx context.Context, store SessionStore, key SessionKey) error

	// LoadIfExists restores agent state if present, otherwise leaves the
	// agent at its zero state and returns false.
	LoadIfExists(ctx context.Context, store SessionStore, key SessionKey) (bool, error)
}
