// Package demoagent is a toy core.AgentHandle: it simulates a multi-step
// reasoning/acting loop with configurable per-step latency so the
// streaming boundary, hook dispatch, and abort/resume paths can be
// exercised end to end without a real LLM or tool runtime — both of which
// are out of scope for this module.
package demoagent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/hooks"
)

const stateField = "agent_state"

// State is the opaque blob demoagent hands to SerializeTo/LoadFrom — a
// simple step trace standing in for a real agent's conversation history
// and tool-use trace.
type State struct {
	Query string   `json:"query"`
	Trace []string `json:"trace"`
}

// Event is one item on the agent's output stream.
type Event struct {
	Type    string `json:"type"` // "message", "tool_result", "done", "aborted", "error"
	Data    string `json:"data,omitempty"`
	Err     error  `json:"-"`
	Aborted *hooks.AbortedError
}

// Agent is a single execution of the toy reasoning/acting loop.
type Agent struct {
	sessionID core.SessionKey
	hook      *hooks.Hook
	logger    *slog.Logger

	steps     int
	stepDelay time.Duration

	mu    sync.Mutex
	state State

	interrupted atomic.Bool
}

// New constructs a demo agent bound to one hook/session. query seeds the
// state on a fresh (non-resumed) execution.
func New(sessionID core.SessionKey, hook *hooks.Hook, query string, steps int, stepDelay time.Duration, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		sessionID: sessionID,
		hook:      hook,
		logger:    logger,
		steps:     steps,
		stepDelay: stepDelay,
		state:     State{Query: query},
	}
}

// Interrupt implements core.AgentHandle. It is cooperative and never
// blocks: the run loop checks the flag between steps.
func (a *Agent) Interrupt(_ context.Context) error {
	a.interrupted.Store(true)
	return nil
}

// SerializeTo implements core.AgentHandle.
func (a *Agent) SerializeTo(ctx context.Context, store core.SessionStore, key core.SessionKey) error {
	a.mu.Lock()
	state := a.state
	a.mu.Unlock()
	return store.Save(ctx, key, stateField, state)
}

// LoadFrom implements core.AgentHandle.
func (a *Agent) LoadFrom(ctx context.Context, store core.SessionStore, key core.SessionKey) error {
	found, err := a.LoadIfExists(ctx, store, key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("demoagent: %w", core.ErrSessionNotFound)
	}
	return nil
}

// LoadIfExists implements core.AgentHandle.
func (a *Agent) LoadIfExists(ctx context.Context, store core.SessionStore, key core.SessionKey) (bool, error) {
	var state State
	found, err := store.Get(ctx, key, stateField, &state)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()
	return true, nil
}

// Run drives the reasoning/acting loop, emitting one Event per channel send
// and closing the channel when the execution completes, aborts, or errors.
// The hook's Complete is called on successful completion only; the abort
// path owns its own checkpoint and must not call Complete (see pkg/hooks).
func (a *Agent) Run(ctx context.Context) <-chan Event {
	out := make(chan Event, 4)
	go func() {
		defer close(out)
		a.run(ctx, out)
	}()
	return out
}

func (a *Agent) run(ctx context.Context, out chan<- Event) {
	for i := 0; i < a.steps; i++ {
		pre := &hooks.PreReasoningEvent{Messages: a.pendingMessages()}
		if err := a.hook.OnEvent(ctx, a, pre); err != nil {
			out <- Event{Type: "error", Err: err}
			return
		}
		if pre.Aborted() {
			a.emitAbort(ctx, pre, out)
			return
		}

		a.sleepStep(ctx)
		if a.interrupted.Load() {
			// Cooperative interrupt observed; the next hook event will
			// turn this into a formal abort. Continue to the next safe
			// point rather than stopping mid-step.
		}

		a.mu.Lock()
		a.state.Trace = append(a.state.Trace, fmt.Sprintf("reasoned step %d for %q", i, a.state.Query))
		a.mu.Unlock()
		out <- Event{Type: "message", Data: fmt.Sprintf("reasoning step %d complete", i)}

		act := &hooks.PreActingEvent{Tool: &hooks.ToolCall{Name: "demo_tool", Args: map[string]any{"step": i}}}
		if err := a.hook.OnEvent(ctx, a, act); err != nil {
			out <- Event{Type: "error", Err: err}
			return
		}
		if act.Aborted() {
			a.emitAbort(ctx, act, out)
			return
		}

		a.sleepStep(ctx)
		a.mu.Lock()
		a.state.Trace = append(a.state.Trace, fmt.Sprintf("acted step %d", i))
		a.mu.Unlock()
		out <- Event{Type: "tool_result", Data: fmt.Sprintf("tool result for step %d", i)}
	}

	a.hook.Complete(ctx)
	out <- Event{Type: "done"}
}

func (a *Agent) sleepStep(ctx context.Context) {
	if a.stepDelay <= 0 {
		return
	}
	timer := time.NewTimer(a.stepDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// emitAbort implements the agent-side half of the abort contract: if a
// checkpoint target was supplied, serialize state there before raising the
// distinguished AbortedError on the stream.
func (a *Agent) emitAbort(ctx context.Context, ev hooks.Event, out chan<- Event) {
	reason, store, key := ev.AbortInfo()
	saved := false
	if store != nil {
		if err := a.SerializeTo(ctx, store, key); err != nil {
			a.logger.Error("demoagent: abort-path checkpoint failed", "session_id", key.String(), "error", err)
		} else {
			saved = true
		}
	}
	out <- Event{
		Type: "aborted",
		Aborted: &hooks.AbortedError{
			Reason:     reason,
			SessionKey: key,
			StateSaved: saved,
		},
	}
}

func (a *Agent) pendingMessages() []*hooks.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return []*hooks.Message{
		{Role: "user", Content: a.state.Query},
	}
}

// MarshalState is exposed for diagnostics/tests.
func (a *Agent) MarshalState() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return json.Marshal(a.state)
}
