package alert

import (
	"context"

	"github.com/gen2brain/beeep"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

// desktopChannel shows an OS-level notification through the platform
// notification service. The dispatcher gates it behind the granted
// permission state; the channel itself only renders. Dismissal timing is
// owned by the platform: beeep exposes no display-duration control.
type desktopChannel struct {
	iconPath string
}

// NewDesktopChannel creates the OS notification channel. iconPath may be
// empty; the platform default icon is used then.
func NewDesktopChannel(iconPath string) service.AlertChannel {
	return &desktopChannel{iconPath: iconPath}
}

func (c *desktopChannel) Kind() service.ChannelKind {
	return service.ChannelDesktop
}

func (c *desktopChannel) Notify(_ context.Context, req *entity.NotificationRequest) error {
	// Errors and warnings use the alert variant so the platform can style
	// them as urgent.
	var err error
	if req.Severity == entity.SeverityError || req.Severity == entity.SeverityWarning {
		err = beeep.Alert(req.Title, req.Message, c.iconPath)
	} else {
		err = beeep.Notify(req.Title, req.Message, c.iconPath)
	}
	if err != nil {
		return errors.Wrap(err, "show desktop notification")
	}

	return nil
}
