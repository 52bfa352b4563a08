package demoagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/hooks"
	"github.com/agentdrain/agentdrain/pkg/lifecycle"
	"github.com/agentdrain/agentdrain/pkg/store/memstore"
)

func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-time.After(time.Second):
			t.Fatal("timed out draining agent event channel")
		}
	}
}

func TestAgent_HappyPathEmitsDoneAndUnregisters(t *testing.T) {
	controller := lifecycle.New()
	store := memstore.New()
	key := core.NewSessionKey("s1")
	hook := hooks.New(store, key, controller, nil)
	agent := New(key, hook, "what is 2+2", 2, 0, nil)

	events := drain(t, agent.Run(context.Background()))

	require.NotEmpty(t, events)
	assert.Equal(t, "done", events[len(events)-1].Type)
	assert.Equal(t, 0, controller.ActiveCount())
}

func TestAgent_AbortsAndChecksPointsWhenDraining(t *testing.T) {
	controller := lifecycle.New()
	store := memstore.New()
	key := core.NewSessionKey("s1")
	hook := hooks.New(store, key, controller, nil)
	agent := New(key, hook, "long task", 10, 5*time.Millisecond, nil)

	out := agent.Run(context.Background())

	time.Sleep(10 * time.Millisecond)
	controller.InitiateDrain()

	events := drain(t, out)
	last := events[len(events)-1]
	require.Equal(t, "aborted", last.Type)
	assert.True(t, last.Aborted.StateSaved)
	assert.Equal(t, hooks.ShutdownReason, last.Aborted.Reason)

	found, err := store.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestAgent_ResumesFromCheckpointedState(t *testing.T) {
	store := memstore.New()
	key := core.NewSessionKey("resume-me")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, key, stateField, State{Query: "original query", Trace: []string{"reasoned step 0"}}))

	controller := lifecycle.New()
	hook := hooks.New(store, key, controller, nil)
	agent := New(key, hook, "", 1, 0, nil)

	found, err := agent.LoadIfExists(ctx, store, key)
	require.NoError(t, err)
	require.True(t, found)

	raw, err := agent.MarshalState()
	require.NoError(t, err)
	assert.Contains(t, string(raw), "original query")
}
