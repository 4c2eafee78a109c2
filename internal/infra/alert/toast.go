// Package alert provides the concrete presentation channels the dispatcher
// fans notification requests out to: the in-app toast, the audio cue, the
// OS-level desktop notification, the screen flash, device vibration, and the
// hidden-window title blink.
package alert

import (
	"context"
	"fmt"
	"io"
	"sync"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

var severityIcons = map[entity.Severity]string{
	entity.SeverityInfo:    "ℹ️",
	entity.SeveritySuccess: "✅",
	entity.SeverityWarning: "⚠️",
	entity.SeverityError:   "❌",
}

// toastChannel renders the in-app toast as a single line on the given
// writer. It is the one channel that must never be suppressed, so it keeps
// no gate of its own.
type toastChannel struct {
	mu  sync.Mutex
	out io.Writer
}

// NewToastChannel creates the in-app toast channel writing to out.
func NewToastChannel(out io.Writer) service.AlertChannel {
	return &toastChannel{out: out}
}

func (c *toastChannel) Kind() service.ChannelKind {
	return service.ChannelToast
}

func (c *toastChannel) Notify(_ context.Context, req *entity.NotificationRequest) error {
	icon := severityIcons[req.Severity]
	if icon == "" {
		icon = severityIcons[entity.SeverityInfo]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "%s %s: %s\n", icon, req.Title, req.Message); err != nil {
		return errors.Wrap(err, "write toast")
	}

	return nil
}
