package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdrain/agentdrain/pkg/core"
	"github.com/agentdrain/agentdrain/pkg/store/memstore"
)

type fakeAgent struct {
	interruptErr error
	saved        bool
}

func (a *fakeAgent) Interrupt(context.Context) error { return a.interruptErr }
func (a *fakeAgent) SerializeTo(context.Context, core.SessionStore, core.SessionKey) error {
	a.saved = true
	return nil
}
func (a *fakeAgent) LoadFrom(context.Context, core.SessionStore, core.SessionKey) error { return nil }
func (a *fakeAgent) LoadIfExists(context.Context, core.SessionStore, core.SessionKey) (bool, error) {
	return false, nil
}

type fakeStore struct{}

func (fakeStore) Save(context.Context, core.SessionKey, string, any) error        { return nil }
func (fakeStore) Get(context.Context, core.SessionKey, string, any) (bool, error) { return false, nil }
func (fakeStore) Delete(context.Context, core.SessionKey, string) error           { return nil }
func (fakeStore) Exists(context.Context, core.SessionKey) (bool, error)           { return false, nil }

func TestController_RegisterRejectsOnceDraining(t *testing.T) {
	c := New()
	agent := &fakeAgent{}

	_, err := c.Register(core.NewSessionKey("s1"), agent, fakeStore{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.ActiveCount())

	c.InitiateDrain()

	_, err = c.Register(core.NewSessionKey("s2"), agent, fakeStore{})
	assert.ErrorIs(t, err, core.ErrNotAccepting)
	assert.False(t, c.IsAccepting())
}

func TestController_AwaitDrainEmptyTableReturnsImmediately(t *testing.T) {
	c := New()
	c.InitiateDrain()

	done := make(chan bool, 1)
	go func() { done <- c.AwaitDrain(time.Second) }()

	select {
	case clean := <-done:
		assert.True(t, clean)
	case <-time.After(time.Second):
		t.Fatal("AwaitDrain did not return for an empty active table")
	}
	assert.Equal(t, StateTerminated, c.CurrentState())
}

func TestController_AwaitDrainWaitsForUnregister(t *testing.T) {
	c := New()
	agent := &fakeAgent{}
	_, err := c.Register(core.NewSessionKey("s1"), agent, fakeStore{})
	require.NoError(t, err)

	c.InitiateDrain()

	done := make(chan bool, 1)
	go func() { done <- c.AwaitDrain(time.Second) }()

	time.Sleep(20 * time.Millisecond)
	c.Unregister(core.NewSessionKey("s1"))

	select {
	case clean := <-done:
		assert.True(t, clean)
	case <-time.After(time.Second):
		t.Fatal("AwaitDrain did not unblock after Unregister")
	}
}

func TestController_AwaitDrainForceCheckpointsOnTimeout(t *testing.T) {
	c := New()
	agent := &fakeAgent{}
	store := memstore.New()
	key := core.NewSessionKey("s1")
	_, err := c.Register(key, agent, store)
	require.NoError(t, err)

	c.InitiateDrain()
	clean := c.AwaitDrain(10 * time.Millisecond)

	assert.False(t, clean)
	assert.True(t, agent.saved)
	assert.Equal(t, StateTerminated, c.CurrentState())
	assert.Equal(t, 0, c.ActiveCount())

	marker, found, err := core.LoadInterruptedMarker(context.Background(), store, key)
	require.NoError(t, err)
	require.True(t, found, "force-checkpoint must leave an InterruptedMarker so resume injection has something to find")
	assert.Equal(t, core.ForceCheckpointReason, marker.Reason)
}

func TestController_InitiateDrainIsIdempotent(t *testing.T) {
	c := New()
	c.InitiateDrain()
	c.InitiateDrain()
	assert.Equal(t, StateDraining, c.CurrentState())
}

func TestController_DuplicateRegistrationOverwrites(t *testing.T) {
	c := New()
	agent1 := &fakeAgent{}
	agent2 := &fakeAgent{}

	_, err := c.Register(core.NewSessionKey("dup"), agent1, fakeStore{})
	require.NoError(t, err)
	rc2, err := c.Register(core.NewSessionKey("dup"), agent2, fakeStore{})
	require.NoError(t, err)

	assert.Equal(t, 1, c.ActiveCount())
	assert.Same(t, agent2, rc2.Agent)
}

func TestGlobal_ResetForTestReplacesSingleton(t *testing.T) {
	first := Global()
	ResetGlobalForTest()
	second := Global()
	assert.NotSame(t, first, second)
}
