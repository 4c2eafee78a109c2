package alert

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a goroutine-safe string sink for channel output.
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sb.String()
}

func titleSequence(title string) string {
	return "\x1b]0;" + title + "\a"
}

func TestTitleBlinker_StopRestoresOriginalTitle(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	visibility := NewVisibilityTracker()
	blinker := NewTitleBlinker(out, "Pulse 訂單面板", 5*time.Millisecond, 100, visibility)

	blinker.Start("🔔 新訂單")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), titleSequence("🔔 新訂單"))
	}, time.Second, time.Millisecond)

	blinker.Stop()

	assert.True(t, strings.HasSuffix(out.String(), titleSequence("Pulse 訂單面板")),
		"the original title must be the last title written")
}

func TestTitleBlinker_BoundedCyclesRestore(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	blinker := NewTitleBlinker(out, "Pulse", time.Millisecond, 3, NewVisibilityTracker())

	blinker.Start("alert")

	// The blink loop also writes the original title on off-toggles, so a
	// suffix check alone cannot tell a mid-cycle toggle from exhaustion.
	// Wait for the full write budget instead: the initial marker, one write
	// per tick, and the restoring write after the cycle bound exhausts.
	wantWrites := 1 + 3 + 1
	require.Eventually(t, func() bool {
		return strings.Count(out.String(), "\x1b]0;") == wantWrites
	}, time.Second, time.Millisecond)

	settled := out.String()
	assert.True(t, strings.HasSuffix(settled, titleSequence("Pulse")),
		"the original title must be the last title written")

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, out.String(), "no writes after cycle exhaustion")
}

func TestTitleBlinker_ExhaustedBlinkDoesNotStopSuccessor(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	blinker := NewTitleBlinker(out, "Pulse", time.Hour, 100, NewVisibilityTracker()).(*titleBlinker)

	blinker.Start("first")
	blinker.mu.Lock()
	stale := blinker.done
	blinker.mu.Unlock()

	blinker.Stop()
	blinker.Start("second")

	// The first goroutine finishing late must leave the second blink alone.
	blinker.stop(stale)

	blinker.mu.Lock()
	blinking := blinker.blinking
	blinker.mu.Unlock()
	assert.True(t, blinking, "a stale stop must not halt the newer blink")

	blinker.Stop()
}

func TestTitleBlinker_VisibilityStopsBlink(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	visibility := NewVisibilityTracker()
	blinker := NewTitleBlinker(out, "Pulse", 5*time.Millisecond, 100, visibility)

	visibility.SetVisible(false)
	blinker.Start("alert")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), titleSequence("alert"))
	}, time.Second, time.Millisecond)

	visibility.SetVisible(true)

	require.Eventually(t, func() bool {
		return strings.HasSuffix(out.String(), titleSequence("Pulse"))
	}, time.Second, time.Millisecond)
}

func TestTitleBlinker_StartWhileBlinkingIsNoOp(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	blinker := NewTitleBlinker(out, "Pulse", time.Hour, 100, NewVisibilityTracker())

	blinker.Start("first")
	blinker.Start("second")
	blinker.Stop()

	assert.NotContains(t, out.String(), titleSequence("second"))
}

func TestTitleBlinker_StopWithoutStartIsSafe(t *testing.T) {
	t.Parallel()

	out := &syncBuffer{}
	blinker := NewTitleBlinker(out, "Pulse", time.Millisecond, 3, NewVisibilityTracker())

	assert.NotPanics(t, func() {
		blinker.Stop()
		blinker.Stop()
	})
	assert.Empty(t, out.String())
}
