package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/demoagent"
	"github.com/agentdrain/agentdrain/pkg/hooks"
	"github.com/agentdrain/agentdrain/pkg/lifecycle"
)

// RunRequest is the request/resume wire contract: a single endpoint, no
// separate "resume" endpoint. If SessionID is empty the server synthesizes
// one and echoes it in the first streamed event; if present, it doubles as
// the resume key and the hook's resume path takes over transparently.
type RunRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Query     string `json:"query,omitempty"`
}

// Server bundles the pieces needed to serve the request/resume endpoint
// and the readiness endpoints.
type Server struct {
	Controller *lifecycle.Controller
	Store      core.SessionStore
	Logger     *slog.Logger

	// Steps and StepDelay configure the demo agent's simulated
	// reasoning/acting loop.
	Steps     int
	StepDelay time.Duration
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	view := lifecycle.NewReadinessView(s.Controller)
	writeJSON(w, http.StatusOK, view.Liveness())
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	view := lifecycle.NewReadinessView(s.Controller)
	status, ready := view.Readiness()
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, http.ErrBodyNotAllowed) {
			// An empty body is a valid "start a fresh run" request.
			if req.SessionID == "" && req.Query == "" {
				_ = err
			}
		}
	}

	// Fast-fail before opening the stream: if the controller is already
	// draining there is no point accepting the connection at all (spec
	// scenario F). Lazy registration inside the hook remains the
	// authoritative check against the race where drain begins after this
	// point but before the first reasoning event.
	if !s.Controller.IsAccepting() {
		writeJSON(w, http.StatusServiceUnavailable, lifecycle.Status{
			Status:  "NOT_READY",
			Message: "service is shutting down, please retry later",
		})
		return
	}

	sessionKey := core.NewSessionKey(req.SessionID)
	resuming := !sessionKey.Empty()
	if !resuming {
		sessionKey = core.NewSessionKey("run-" + uuid.NewString())
	}

	hook := hooks.New(s.Store, sessionKey, s.Controller, s.logger())
	agent := demoagent.New(sessionKey, hook, req.Query, s.stepsOrDefault(), s.StepDelay, s.logger())

	if resuming {
		if _, err := agent.LoadIfExists(r.Context(), s.Store, sessionKey); err != nil {
			s.logger().Error("httpapi: failed to load prior agent state", "session_id", sessionKey.String(), "error", err)
		}
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	_ = sse.send("session", map[string]string{"sessionId": sessionKey.String()})

	for ev := range agent.Run(r.Context()) {
		switch ev.Type {
		case "message", "tool_result":
			_ = sse.send(ev.Type, map[string]string{"sessionId": sessionKey.String(), "data": ev.Data})
		case "done":
			_ = sse.send("done", map[string]string{"sessionId": sessionKey.String()})
		case "aborted":
			_ = sse.send("aborted", map[string]any{
				"sessionId":  ev.Aborted.SessionKey.String(),
				"reason":     ev.Aborted.Reason,
				"stateSaved": ev.Aborted.StateSaved,
			})
		case "error":
			_ = sse.send("error", map[string]string{"sessionId": sessionKey.String(), "message": ev.Err.Error()})
		}
	}
}

func (s *Server) stepsOrDefault() int {
	if s.Steps <= 0 {
		return 4
	}
	return s.Steps
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
