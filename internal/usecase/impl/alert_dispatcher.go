package impl

import (
	"context"
	"log/slog"
	"sync"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/usecase"
)

// alertDispatcher fans notification requests out to the registered alert
// channels. Channels are isolated from each other: a panic or error in one
// is logged and never prevents the others from firing.
type alertDispatcher struct {
	logger     *slog.Logger
	channels   map[service.ChannelKind]service.AlertChannel
	blinker    service.TitleBlinker
	visibility service.Visibility
	prompter   service.PermissionPrompter
	prefStore  service.PreferenceStore

	mu        sync.Mutex
	prefs     entity.AlertPreferences
	prompting bool
}

// NewAlertDispatcher creates the dispatcher. Preferences are loaded from the
// store once; later mutations flow through SetSoundEnabled and the
// permission prompt and are persisted back, so the store and the in-memory
// value converge.
func NewAlertDispatcher(
	logger *slog.Logger,
	channels []service.AlertChannel,
	blinker service.TitleBlinker,
	visibility service.Visibility,
	prompter service.PermissionPrompter,
	prefStore service.PreferenceStore,
) (usecase.DispatchUsecase, error) {
	prefs, err := prefStore.Load()
	if err != nil {
		// A corrupt or unreadable preference file falls back to defaults;
		// alerting must not be blocked by preference storage.
		logger.Warn("failed to load alert preferences, using defaults", slog.Any("error", err))
		prefs = entity.DefaultAlertPreferences()
	}

	byKind := make(map[service.ChannelKind]service.AlertChannel, len(channels))
	for _, ch := range channels {
		byKind[ch.Kind()] = ch
	}

	return &alertDispatcher{
		logger:     logger,
		channels:   byKind,
		blinker:    blinker,
		visibility: visibility,
		prompter:   prompter,
		prefStore:  prefStore,
		prefs:      prefs,
	}, nil
}

// Dispatch executes the request. The in-app toast fires first and
// unconditionally; every other channel is gated and best-effort.
func (d *alertDispatcher) Dispatch(ctx context.Context, req *entity.NotificationRequest) {
	if req == nil {
		return
	}

	d.notify(ctx, service.ChannelToast, req)

	prefs := d.Preferences()

	if req.Channels.Sound && prefs.SoundEnabled {
		d.notify(ctx, service.ChannelSound, req)
	}
	if req.Channels.Desktop && prefs.DesktopPermission == entity.PermissionGranted {
		d.notify(ctx, service.ChannelDesktop, req)
	}
	if req.Channels.Flash {
		// The flash is visual and assistive; it ignores preferences.
		d.notify(ctx, service.ChannelFlash, req)
	}
	if req.Channels.Vibrate {
		d.notify(ctx, service.ChannelVibrate, req)
	}

	// The title blink only matters when the user cannot see the window and
	// the event was loud enough to request sound or a desktop notification.
	if (req.Channels.Sound || req.Channels.Desktop) && d.visibility.Hidden() {
		d.blinker.Start(req.Title)
	}
}

// notify runs one channel, containing errors and panics.
func (d *alertDispatcher) notify(ctx context.Context, kind service.ChannelKind, req *entity.NotificationRequest) {
	ch, ok := d.channels[kind]
	if !ok {
		return
	}

	if checker, ok := ch.(service.CapabilityChecker); ok && !checker.Supported() {
		d.logger.Debug("alert channel unsupported on this platform", slog.String("channel", string(kind)))

		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("alert channel panicked", slog.String("channel", string(kind)), slog.Any("panic", r))
		}
	}()

	if err := ch.Notify(ctx, req); err != nil {
		d.logger.Warn("alert channel failed", slog.String("channel", string(kind)), slog.Any("error", err))
	}
}

// RequestPermission prompts for OS notification permission. Only the
// PermissionDefault state prompts; granted and denied resolve immediately,
// and concurrent calls share a single prompt.
func (d *alertDispatcher) RequestPermission(ctx context.Context) (entity.PermissionState, error) {
	d.mu.Lock()
	if d.prefs.DesktopPermission != entity.PermissionDefault {
		state := d.prefs.DesktopPermission
		d.mu.Unlock()

		return state, nil
	}
	if d.prompting {
		d.mu.Unlock()

		return entity.PermissionDefault, nil
	}
	d.prompting = true
	d.mu.Unlock()

	state, err := d.prompter.Prompt(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.prompting = false
	if err != nil {
		// An aborted prompt leaves the state unset so a later gesture can retry.
		return entity.PermissionDefault, err
	}

	d.prefs.DesktopPermission = state
	d.persistLocked()

	return state, nil
}

// SetSoundEnabled toggles and persists the sound preference.
func (d *alertDispatcher) SetSoundEnabled(enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prefs.SoundEnabled = enabled

	return d.persistLocked()
}

// Preferences returns the current converged preference value.
func (d *alertDispatcher) Preferences() entity.AlertPreferences {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.prefs
}

// CancelActive stops the title blink, restoring the original title.
func (d *alertDispatcher) CancelActive() {
	d.blinker.Stop()
}

func (d *alertDispatcher) persistLocked() error {
	if err := d.prefStore.Save(d.prefs); err != nil {
		d.logger.Warn("failed to persist alert preferences", slog.Any("error", err))

		return err
	}

	return nil
}
