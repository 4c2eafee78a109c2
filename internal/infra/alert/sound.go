package alert

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/gen2brain/beeep"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

// SoundStrategy is one way of producing the audio cue. Strategies form a
// fallback chain: the channel walks them in order and stops at the first
// that succeeds.
type SoundStrategy interface {
	Name() string
	Play(ctx context.Context) error
}

// soundChannel plays the audio cue through the first working strategy.
type soundChannel struct {
	logger     *slog.Logger
	strategies []SoundStrategy
}

// NewSoundChannel creates the audio cue channel with the default strategy
// chain: the system beep, then the terminal bell on the controlling tty,
// then the bell byte on stdout.
func NewSoundChannel(logger *slog.Logger) service.AlertChannel {
	return NewSoundChannelWithStrategies(logger,
		&systemBeep{},
		&terminalBell{path: "/dev/tty"},
		&writerBell{out: os.Stdout},
	)
}

// NewSoundChannelWithStrategies creates the audio cue channel with an
// explicit strategy chain.
func NewSoundChannelWithStrategies(logger *slog.Logger, strategies ...SoundStrategy) service.AlertChannel {
	return &soundChannel{logger: logger, strategies: strategies}
}

func (c *soundChannel) Kind() service.ChannelKind {
	return service.ChannelSound
}

func (c *soundChannel) Notify(ctx context.Context, _ *entity.NotificationRequest) error {
	var lastErr error
	for _, strategy := range c.strategies {
		if err := strategy.Play(ctx); err != nil {
			c.logger.Debug("sound strategy failed, trying next",
				slog.String("strategy", strategy.Name()), slog.Any("error", err))
			lastErr = err

			continue
		}

		return nil
	}

	return errors.Wrap(lastErr, "all sound strategies failed")
}

// systemBeep uses the OS sound facility.
type systemBeep struct{}

func (s *systemBeep) Name() string { return "system" }

func (s *systemBeep) Play(context.Context) error {
	return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
}

// terminalBell writes the BEL byte to the controlling terminal device, which
// rings even when stdout is redirected.
type terminalBell struct {
	path string
}

func (s *terminalBell) Name() string { return "tty" }

func (s *terminalBell) Play(context.Context) error {
	tty, err := os.OpenFile(s.path, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrap(err, "open terminal device")
	}
	defer tty.Close()

	if _, err := tty.Write([]byte{'\a'}); err != nil {
		return errors.Wrap(err, "ring terminal bell")
	}

	return nil
}

// writerBell writes the BEL byte to a plain writer. Last resort.
type writerBell struct {
	out io.Writer
}

func (s *writerBell) Name() string { return "writer" }

func (s *writerBell) Play(context.Context) error {
	if _, err := s.out.Write([]byte{'\a'}); err != nil {
		return errors.Wrap(err, "write bell byte")
	}

	return nil
}
