package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShutdownHook_SetDeadlineUpdatesWhatWaitWillUse(t *testing.T) {
	c := New()
	h := NewShutdownHook(c, 30*time.Second, nil)
	assert.Equal(t, 30*time.Second, h.Deadline())

	h.SetDeadline(5 * time.Second)
	assert.Equal(t, 5*time.Second, h.Deadline())
}

func TestShutdownHook_SetDeadlineIgnoresNonPositive(t *testing.T) {
	c := New()
	h := NewShutdownHook(c, 30*time.Second, nil)

	h.SetDeadline(0)
	h.SetDeadline(-time.Second)

	assert.Equal(t, 30*time.Second, h.Deadline())
}
