package hooks

import "github.com/agentdrain/agentdrain/pkg/core"

// EventKind tags the two safe points at which an agent execution may be
// suspended. Go has no native subtyping over event kinds, so the hook
// models them as a small tagged union instead: an Event interface plus one
// concrete type per kind.
type EventKind int

const (
	// PreReasoning is emitted once per reasoning step, just before the LLM
	// call.
	PreReasoning EventKind = iota
	// PreActing is emitted once per tool invocation, just before the tool
	// runs.
	PreActing
)

func (k EventKind) String() string {
	switch k {
	case PreReasoning:
		return "pre_reasoning"
	case PreActing:
		return "pre_acting"
	default:
		return "unknown"
	}
}

// Message is a single entry in the list of messages about to be sent to
// the LLM. The reasoning loop itself is out of scope for this module;
// Message is the minimal shape the hook needs to inject a resume
// instruction.
type Message struct {
	Role    string
	Content string
}

// ToolCall is the modifiable descriptor of a tool invocation about to run.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Event is the capability surface every hook event exposes: identify its
// kind, and allow the hook to abort it.
type Event interface {
	Kind() EventKind
	// Abort marks the event as aborted for the given reason. If store and
	// key are both non-empty/non-nil, the agent dispatching this event
	// must serialize its state into store under key before raising the
	// distinguished abort signal on its output stream.
	Abort(reason string, store core.SessionStore, key core.SessionKey)
	// Aborted reports whether Abort has been called.
	Aborted() bool
	// AbortInfo returns the reason and checkpoint target recorded by
	// Abort. Only meaningful when Aborted() is true.
	AbortInfo() (reason string, store core.SessionStore, key core.SessionKey)
}

type abortState struct {
	aborted bool
	reason  string
	store   core.SessionStore
	key     core.SessionKey
}

func (a *abortState) Abort(reason string, store core.SessionStore, key core.SessionKey) {
	a.aborted = true
	a.reason = reason
	a.store = store
	a.key = key
}

func (a *abortState) Aborted() bool { return a.aborted }

func (a *abortState) AbortInfo() (string, core.SessionStore, core.SessionKey) {
	return a.reason, a.store, a.key
}

// PreReasoningEvent carries the modifiable list of messages about to be
// sent to the LLM for one reasoning step.
type PreReasoningEvent struct {
	abortState
	Messages []*Message
}

// Kind implements Event.
func (*PreReasoningEvent) Kind() EventKind { return PreReasoning }

// AppendMessage mutates the event's message list in place. The resume hook
// uses this to append the synthetic continuation instruction after every
// original message, so it is the last thing the model sees.
func (e *PreReasoningEvent) AppendMessage(m *Message) {
	e.Messages = append(e.Messages, m)
}

// PreActingEvent carries the modifiable descriptor of a tool invocation
// about to run.
type PreActingEvent struct {
	abortState
	Tool *ToolCall
}

// Kind implements Event.
func (*PreActingEvent) Kind() EventKind { return PreActing }
