package service

import (
	"context"

	"pulse/internal/domain/entity"
)

// ChannelKind identifies one presentation mechanism of the dispatcher.
type ChannelKind string

const (
	// ChannelToast is the in-app toast. It always fires and must not fail.
	ChannelToast ChannelKind = "toast"
	// ChannelSound is the audio cue.
	ChannelSound ChannelKind = "sound"
	// ChannelDesktop is the OS-level notification.
	ChannelDesktop ChannelKind = "desktop"
	// ChannelFlash is the short full-screen flash overlay.
	ChannelFlash ChannelKind = "flash"
	// ChannelVibrate is the device vibration cue.
	ChannelVibrate ChannelKind = "vibrate"
)

// AlertChannel is one presentation mechanism the dispatcher can fan a
// notification request out to. Implementations are best-effort: a returned
// error is logged by the dispatcher and never propagated further.
type AlertChannel interface {
	// Kind identifies the channel for gating against the requested set.
	Kind() ChannelKind

	// Notify presents the request through this channel.
	Notify(ctx context.Context, req *entity.NotificationRequest) error
}

// CapabilityChecker is implemented by channels whose availability depends on
// the platform (e.g. vibration hardware). Channels that do not implement it
// are assumed available.
type CapabilityChecker interface {
	Supported() bool
}

// TitleBlinker blinks the application title while the window is hidden.
// Stop must always restore the exact original title, including when it races
// a visibility change; a stuck blinking title is a defect.
type TitleBlinker interface {
	// Start begins blinking with the given alert marker. It is a no-op if a
	// blink cycle is already running.
	Start(marker string)

	// Stop halts blinking and restores the original title. Safe to call at
	// any time, including when no blink is running.
	Stop()
}

// Visibility reports whether the application window is currently visible to
// the user, and lets subscribers react when it becomes visible again.
type Visibility interface {
	// Hidden reports whether the window is currently not visible.
	Hidden() bool

	// OnVisible registers a callback fired when the window regains
	// visibility. The returned function cancels the registration.
	OnVisible(fn func()) (cancel func())
}

// PermissionPrompter asks the user for OS-level notification permission.
// The prompt blocks until the user resolves it or ctx is done.
type PermissionPrompter interface {
	Prompt(ctx context.Context) (entity.PermissionState, error)
}

// PreferenceStore persists the user alert preferences across sessions.
type PreferenceStore interface {
	// Load reads the persisted preferences, returning defaults when none exist.
	Load() (entity.AlertPreferences, error)

	// Save writes the preferences. Writers must not interleave partial updates.
	Save(prefs entity.AlertPreferences) error
}
