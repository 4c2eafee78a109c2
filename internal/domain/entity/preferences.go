package entity

// PermissionState mirrors the tri-state permission model of OS-level
// notifications: unset, granted by the user, or denied by the user.
type PermissionState string

const (
	// PermissionDefault means the user has not been prompted yet.
	PermissionDefault PermissionState = "default"
	// PermissionGranted means the user allowed OS-level notifications.
	PermissionGranted PermissionState = "granted"
	// PermissionDenied means the user denied OS-level notifications.
	// A denied state is never re-prompted by the dispatcher.
	PermissionDenied PermissionState = "denied"
)

// IsValid reports whether s is one of the known permission states.
func (s PermissionState) IsValid() bool {
	switch s {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return true
	default:
		return false
	}
}

// AlertPreferences holds the user-controlled alert settings. SoundEnabled is
// persisted across sessions; DesktopPermission converges from either an
// explicit toggle or a permission-prompt resolution.
type AlertPreferences struct {
	SoundEnabled      bool            `json:"sound_enabled"`
	DesktopPermission PermissionState `json:"desktop_permission"`
}

// DefaultAlertPreferences returns the preferences used before the user has
// made any choice: sound on, desktop notifications not yet requested.
func DefaultAlertPreferences() AlertPreferences {
	return AlertPreferences{
		SoundEnabled:      true,
		DesktopPermission: PermissionDefault,
	}
}
