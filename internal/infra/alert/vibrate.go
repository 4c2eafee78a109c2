package alert

import (
	"context"
	"time"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

// Vibrator abstracts the vibration hardware. Most hosts have none, so the
// channel reports unsupported unless a vibrator is provided.
type Vibrator interface {
	Vibrate(pattern []time.Duration) error
}

// Assignment alerts buzz twice; everything else gets a single short pulse.
var (
	vibratePatternDefault = []time.Duration{200 * time.Millisecond}
	vibratePatternUrgent  = []time.Duration{
		200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond,
	}
)

type vibrateChannel struct {
	vibrator Vibrator
}

// NewVibrateChannel creates the vibration channel. A nil vibrator yields a
// channel that reports itself unsupported and is skipped by the dispatcher.
func NewVibrateChannel(vibrator Vibrator) service.AlertChannel {
	return &vibrateChannel{vibrator: vibrator}
}

func (c *vibrateChannel) Kind() service.ChannelKind {
	return service.ChannelVibrate
}

func (c *vibrateChannel) Supported() bool {
	return c.vibrator != nil
}

func (c *vibrateChannel) Notify(_ context.Context, req *entity.NotificationRequest) error {
	pattern := vibratePatternDefault
	if req.Severity == entity.SeverityError || req.Channels.Sound {
		pattern = vibratePatternUrgent
	}

	if err := c.vibrator.Vibrate(pattern); err != nil {
		return errors.Wrap(err, "vibrate")
	}

	return nil
}
