package alert

import (
	"context"
	"io"
	"sync"
	"time"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

const (
	ansiReverseOn  = "\x1b[?5h" // DECSCNM: reverse video on, whole screen.
	ansiReverseOff = "\x1b[?5l"
)

// flashChannel inverts the screen colors for a short moment. The effect is
// assistive and ignores sound and permission preferences.
type flashChannel struct {
	out      io.Writer
	duration time.Duration

	mu       sync.Mutex
	restore  *time.Timer
	flashing bool
}

// NewFlashChannel creates the screen flash channel. A flash arriving while
// one is already showing extends the current one instead of stacking.
func NewFlashChannel(out io.Writer, duration time.Duration) service.AlertChannel {
	return &flashChannel{out: out, duration: duration}
}

func (c *flashChannel) Kind() service.ChannelKind {
	return service.ChannelFlash
}

func (c *flashChannel) Notify(_ context.Context, _ *entity.NotificationRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flashing {
		c.restore.Reset(c.duration)

		return nil
	}

	if _, err := io.WriteString(c.out, ansiReverseOn); err != nil {
		return errors.Wrap(err, "start screen flash")
	}
	c.flashing = true
	c.restore = time.AfterFunc(c.duration, c.unflash)

	return nil
}

func (c *flashChannel) unflash() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The restore write is best-effort: a failure here leaves the screen
	// inverted, and the next flash cycle will settle it.
	_, _ = io.WriteString(c.out, ansiReverseOff)
	c.flashing = false
}
