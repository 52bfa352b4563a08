package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/lifecycle"
)

// ShutdownReason is the default abort reason written to the interrupted
// marker and surfaced to the client when an execution is aborted because
// the process is draining.
const ShutdownReason = "Service is shutting down, please retry later"

// Priority is the hook's position in the agent's hook chain. The lowest
// numeric priority runs first; this hook must gate every other hook, since
// other hooks may perform irreversible side effects that the abort
// decision must short-circuit.
const Priority = 0

// Hook is the per-execution AgentAbortHook described by the spec: it
// registers the execution with the lifecycle controller on the first
// reasoning event, injects a resume instruction if the session carries an
// interrupted marker, and aborts with checkpoint whenever the controller
// stops accepting work.
type Hook struct {
	store      core.SessionStore
	sessionKey core.SessionKey
	controller *lifecycle.Controller
	logger     *slog.Logger
	nowFn      func() time.Time

	registered atomic.Bool
	resumed    atomic.Bool

	mu      sync.Mutex
	agent   core.AgentHandle
	reqCtx  *core.RequestContext
	cleanup sync.Once
}

// New constructs a Hook for one execution. store and controller must be
// non-nil; logger may be nil (slog.Default() is used).
func New(store core.SessionStore, sessionKey core.SessionKey, controller *lifecycle.Controller, logger *slog.Logger) *Hook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hook{
		store:      store,
		sessionKey: sessionKey,
		controller: controller,
		logger:     logger,
		nowFn:      time.Now,
	}
}

// Priority implements the hook-chain ordering contract.
func (h *Hook) Priority() int { return Priority }

// OnEvent runs the per-event algorithm. agent is the handle for the
// execution currently emitting ev; it is cached on first successful
// registration.
//
// OnEvent returns core.ErrNotAccepting only when registration itself fails
// (the execution never started, scenario F in the spec). An abort decision
// made after successful registration is recorded on ev via Abort and
// returned as nil — the caller (the agent's event dispatcher) is
// responsible for checking ev.Aborted() after the hook chain returns,
// checkpointing if requested, and raising the distinguished AbortedError on
// its output stream.
func (h *Hook) OnEvent(ctx context.Context, agent core.AgentHandle, ev Event) error {
	if ev.Kind() == PreReasoning && h.registered.CompareAndSwap(false, true) {
		rc, err := h.controller.Register(h.sessionKey, agent, h.store)
		if err != nil {
			// Roll back so a caller that retries the same hook (it
			// shouldn't, but defensively) can attempt registration again.
			h.registered.Store(false)
			return fmt.Errorf("agentdrain: %w", err)
		}
		h.mu.Lock()
		h.agent = agent
		h.reqCtx = rc
		h.mu.Unlock()
	}

	if ev.Kind() == PreReasoning {
		if pre, ok := ev.(*PreReasoningEvent); ok && h.resumed.CompareAndSwap(false, true) {
			if err := h.injectResume(ctx, pre); err != nil {
				h.logger.Error("agentdrain: failed to process interrupted marker on resume",
					"session_id", h.sessionKey.String(), "error", err)
			}
		}
	}

	if !h.controller.IsAccepting() {
		switch ev.Kind() {
		case PreReasoning, PreActing:
			marker := core.NewInterruptedMarker(ShutdownReason, h.nowFn())
			if err := core.SaveInterruptedMarker(ctx, h.store, h.sessionKey, marker); err != nil {
				h.logger.Error("agentdrain: failed to persist interrupted marker",
					"session_id", h.sessionKey.String(), "error", err)
			}
			ev.Abort(ShutdownReason, h.store, h.sessionKey)
			h.logger.Info("agentdrain: aborting execution, controller is draining",
				"session_id", h.sessionKey.String(), "event_kind", ev.Kind().String())
		}
	}

	return nil
}

// injectResume implements the unconditional resume-message injection: if
// an InterruptedMarker is present, a synthetic system message describing
// the prior abort is appended after the original messages, and the marker
// is deleted. Runs at most once per hook instance.
func (h *Hook) injectResume(ctx context.Context, ev *PreReasoningEvent) error {
	marker, found, err := core.LoadInterruptedMarker(ctx, h.store, h.sessionKey)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}

	ev.AppendMessage(&Message{
		Role: "system",
		Content: fmt.Sprintf(
			"Your previous execution was interrupted at %s due to: %s. "+
				"Review your conversation history and continue from where you left off. "+
				"Do not restart from the beginning.",
			marker.InterruptedAt.Format(time.RFC3339), marker.Reason,
		),
	})

	if err := core.ClearInterruptedMarker(ctx, h.store, h.sessionKey); err != nil {
		return err
	}
	h.logger.Info("agentdrain: resumed execution with injected continuation message",
		"session_id", h.sessionKey.String(), "prior_reason", marker.Reason)
	return nil
}

// Complete runs the successful-completion contract: clear the interrupted
// marker (defensive — injectResume usually already cleared it), serialize
// final agent state, and unregister from the controller. Idempotent.
//
// If an execution instead aborts, the handler must not call Complete — the
// abort path inside OnEvent/Abort already owns marker and state
// persistence.
func (h *Hook) Complete(ctx context.Context) {
	h.cleanup.Do(func() {
		if err := core.ClearInterruptedMarker(ctx, h.store, h.sessionKey); err != nil {
			h.logger.Warn("agentdrain: failed to clear interrupted marker on completion",
				"session_id", h.sessionKey.String(), "error", err)
		}

		h.mu.Lock()
		agent := h.agent
		h.mu.Unlock()

		if agent != nil {
			if err := agent.SerializeTo(ctx, h.store, h.sessionKey); err != nil {
				h.logger.Error("agentdrain: failed to persist final agent state",
					"session_id", h.sessionKey.String(), "error", err)
			}
		}

		h.controller.Unregister(h.sessionKey)
	})
}

// Registered reports whether this hook has registered its execution with
// the controller.
func (h *Hook) Registered() bool { return h.registered.Load() }
