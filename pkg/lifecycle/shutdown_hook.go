package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"
)

// ShutdownHook binds a process-termination signal to the controller's
// drain sequence, the same os/signal + channel shape as the teacher's
// Server.runLifecycle (pkg/server/server.go), narrowed to just the drain
// concern — config reload and transport teardown live in the demo server,
// not here.
//
// deadline is stored as an atomic nanosecond count rather than a plain
// time.Duration field so a config hot-reload can call SetDeadline
// concurrently with Wait reading it, the same pattern the controller uses
// for its own state field.
type ShutdownHook struct {
	controller *Controller
	deadline   atomic.Int64
	logger     *slog.Logger
	signals    []os.Signal
}

// NewShutdownHook binds controller to deadline, the single tuning knob the
// spec mandates (default 30s).
func NewShutdownHook(controller *Controller, deadline time.Duration, logger *slog.Logger) *ShutdownHook {
	if logger == nil {
		logger = slog.Default()
	}
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	h := &ShutdownHook{
		controller: controller,
		logger:     logger,
		signals:    []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	h.deadline.Store(int64(deadline))
	return h
}

// SetDeadline updates the drain deadline used by the next call to Wait. Safe
// to call concurrently, including from a config.Loader's OnChange callback
// while Wait is blocked waiting for a termination signal. Has no effect on
// an AwaitDrain call already in progress.
func (h *ShutdownHook) SetDeadline(deadline time.Duration) {
	if deadline <= 0 {
		return
	}
	h.deadline.Store(int64(deadline))
}

// Deadline returns the drain deadline that the next call to Wait will use.
func (h *ShutdownHook) Deadline() time.Duration {
	return time.Duration(h.deadline.Load())
}

// Wait blocks until a termination signal arrives or ctx is canceled, then
// drains: read activeCount for log context, InitiateDrain, AwaitDrain(deadline).
// Returns true if every execution finished before the deadline, false if
// any had to be force-checkpointed. Callers should return/exit the process
// once Wait returns.
func (h *ShutdownHook) Wait(ctx context.Context) bool {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, h.signals...)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		h.logger.Info("lifecycle: termination signal received", "signal", sig.String(),
			"active_count", h.controller.ActiveCount())
	case <-ctx.Done():
		h.logger.Info("lifecycle: shutdown requested via context", "active_count", h.controller.ActiveCount())
	}

	h.controller.InitiateDrain()
	clean := h.controller.AwaitDrain(h.Deadline())
	if clean {
		h.logger.Info("lifecycle: drain finished cleanly")
	} else {
		h.logger.Warn("lifecycle: drain deadline exceeded, remaining executions were force-checkpointed")
	}
	return clean
}
