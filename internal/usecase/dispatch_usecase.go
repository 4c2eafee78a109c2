package usecase

import (
	"context"

	"pulse/internal/domain/entity"
)

// DispatchUsecase fans a notification request out to the presentation
// channels, honoring the user alert preferences and platform capabilities.
// Every channel except the in-app toast is best-effort: failures are logged
// and contained, never surfaced to the caller.
type DispatchUsecase interface {
	// Dispatch executes the request: the toast always fires first, then each
	// additional requested channel runs independently.
	Dispatch(ctx context.Context, req *entity.NotificationRequest)

	// RequestPermission triggers the OS notification permission prompt when
	// the current state is PermissionDefault. It is idempotent when already
	// granted or denied and never re-prompts a denial.
	RequestPermission(ctx context.Context) (entity.PermissionState, error)

	// SetSoundEnabled toggles the persisted sound preference.
	SetSoundEnabled(enabled bool) error

	// Preferences returns the current converged preference value.
	Preferences() entity.AlertPreferences

	// CancelActive stops in-flight presentation state (the title blink),
	// restoring the original title. Called on disconnect.
	CancelActive()
}
