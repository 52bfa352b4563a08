package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentdrain/agentdrain/pkg/core"
)

func TestStore_SaveGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := core.NewSessionKey("sess-1")

	marker := core.NewInterruptedMarker("boom", time.Now().UTC().Truncate(time.Second))
	require.NoError(t, s.Save(ctx, key, core.InterruptedMarkerField, marker))

	var got core.InterruptedMarker
	found, err := s.Get(ctx, key, core.InterruptedMarkerField, &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, marker, got)
}

func TestStore_GetMissingFieldOrKey(t *testing.T) {
	s := New()
	ctx := context.Background()

	var out core.InterruptedMarker
	found, err := s.Get(ctx, core.NewSessionKey("nope"), core.InterruptedMarkerField, &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, core.NewSessionKey("sess"), "other_field", "x"))
	found, err = s.Get(ctx, core.NewSessionKey("sess"), core.InterruptedMarkerField, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_DeleteIsNoopWhenAbsent(t *testing.T) {
	s := New()
	ctx := context.Background()
	assert.NoError(t, s.Delete(ctx, core.NewSessionKey("nope"), "field"))
}

func TestStore_Exists(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := core.NewSessionKey("sess")

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Save(ctx, key, "f", 1))
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Delete(ctx, key, "f"))
	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists, "deleting the only field should make the key appear empty")
}

func TestStore_MarkerSaveLoadClear(t *testing.T) {
	s := New()
	ctx := context.Background()
	key := core.NewSessionKey("sess")

	_, found, err := core.LoadInterruptedMarker(ctx, s, key)
	require.NoError(t, err)
	assert.False(t, found)

	marker := core.NewInterruptedMarker("shutdown", time.Now())
	require.NoError(t, core.SaveInterruptedMarker(ctx, s, key, marker))

	loaded, found, err := core.LoadInterruptedMarker(ctx, s, key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, marker.Reason, loaded.Reason)

	require.NoError(t, core.ClearInterruptedMarker(ctx, s, key))
	_, found, err = core.LoadInterruptedMarker(ctx, s, key)
	require.NoError(t, err)
	assert.False(t, found)
}
