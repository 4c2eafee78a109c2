package entity

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies a notification request for presentation purposes.
type Severity string

const (
	// SeverityInfo is the default severity for routine updates.
	SeverityInfo Severity = "info"
	// SeveritySuccess marks positive outcomes (e.g. a courier was assigned).
	SeveritySuccess Severity = "success"
	// SeverityWarning marks degraded but recoverable situations.
	SeverityWarning Severity = "warning"
	// SeverityError marks failures (e.g. an order was cancelled).
	SeverityError Severity = "error"
)

// ChannelSet describes which alert channels a notification request asks for.
// The in-app toast is implicit: it always fires and cannot be suppressed.
type ChannelSet struct {
	Sound   bool `json:"sound"`
	Desktop bool `json:"desktop"` // OS-level notification.
	Flash   bool `json:"flash"`   // Full-screen flash overlay.
	Vibrate bool `json:"vibrate"`
}

// Any reports whether any optional channel is requested.
func (c ChannelSet) Any() bool {
	return c.Sound || c.Desktop || c.Flash || c.Vibrate
}

// NotificationRequest is an ephemeral instruction describing which alert
// channels to attempt for a single event. It is created by the channel
// manager, consumed once by the dispatcher, then discarded.
type NotificationRequest struct {
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	Channels ChannelSet    `json:"channels"`
	Duration time.Duration `json:"duration"` // In-app toast duration.
	OrderID  string        `json:"order_id,omitempty"`
}

// alertRoute is one row of the per-role, per-event routing table.
type alertRoute struct {
	Channels ChannelSet
	Duration time.Duration
	Severity Severity
}

// alertRoutes is the declarative routing matrix: which channels fire, for how
// long, per role and event kind. A missing row means the event is not
// surfaced at all for that role. Adding a role or event kind is a data
// change here, not a code change at the call sites.
var alertRoutes = map[Role]map[EventKind]alertRoute{
	RoleAdmin: {
		EventOrderCreated: {
			Channels: ChannelSet{Sound: true, Desktop: true, Flash: true, Vibrate: true},
			Duration: 10 * time.Second,
			Severity: SeverityInfo,
		},
		EventOrderStatusUpdated:    {Duration: 3 * time.Second, Severity: SeverityInfo},
		EventOrderUpdated:          {Duration: 3 * time.Second, Severity: SeverityInfo},
		EventOrderCancelled:        {Duration: 5 * time.Second, Severity: SeverityError},
		EventDeliveryStatusUpdated: {Duration: 3 * time.Second, Severity: SeverityInfo},
	},
	RoleCourier: {
		EventOrderStatusUpdated: {Duration: 3 * time.Second, Severity: SeverityInfo},
		EventOrderUpdated:       {Duration: 3 * time.Second, Severity: SeverityInfo},
		EventOrderCancelled:     {Duration: 5 * time.Second, Severity: SeverityError},
		EventDeliveryAssigned: {
			Channels: ChannelSet{Sound: true, Desktop: true, Vibrate: true},
			Duration: 8 * time.Second,
			Severity: SeverityInfo,
		},
		EventDeliveryStatusUpdated: {Duration: 3 * time.Second, Severity: SeverityInfo},
	},
	RoleCustomer: {
		EventOrderStatusUpdated: {
			Channels: ChannelSet{Desktop: true, Vibrate: true},
			Duration: 6 * time.Second,
			Severity: SeverityInfo,
		},
		EventOrderUpdated:   {Duration: 3 * time.Second, Severity: SeverityInfo},
		EventOrderCancelled: {Duration: 3 * time.Second, Severity: SeverityError},
		EventDeliveryAssigned: {
			Channels: ChannelSet{Desktop: true},
			Duration: 5 * time.Second,
			Severity: SeveritySuccess,
		},
		EventDeliveryStatusUpdated: {
			Channels: ChannelSet{Desktop: true, Vibrate: true},
			Duration: 6 * time.Second,
			Severity: SeverityInfo,
		},
	},
}

// RouteAlert looks up the routing matrix for a role and event kind.
// The second return is false when the event is not surfaced for the role.
func RouteAlert(role Role, kind EventKind) (ChannelSet, time.Duration, Severity, bool) {
	route, ok := alertRoutes[role][kind]
	if !ok {
		return ChannelSet{}, 0, SeverityInfo, false
	}

	return route.Channels, route.Duration, route.Severity, true
}

// RolesForEvent returns the roles the routing matrix surfaces an event kind
// to. The gateway uses it as the fanout scope.
func RolesForEvent(kind EventKind) Roles {
	roles := make(Roles, 0, len(alertRoutes))
	for _, role := range []Role{RoleAdmin, RoleCourier, RoleCustomer} {
		if _, ok := alertRoutes[role][kind]; ok {
			roles = append(roles, role)
		}
	}

	return roles
}

// OrderNotificationLog is a persisted record of one notification fanned out
// by the gateway for an order event.
type OrderNotificationLog struct {
	ID        uuid.UUID `json:"id"`         // The Global Unique Identifier (GUID) for the log entry.
	OrderID   string    `json:"order_id"`   // The order the event referred to.
	EventKind EventKind `json:"event_kind"` // The wire event kind that triggered the notification.
	Role      Role      `json:"role"`       // The role the notification was routed to.
	Title     string    `json:"title"`      // The rendered notification title.
	Message   string    `json:"message"`    // The rendered notification body.
	Transport string    `json:"transport"`  // Delivery transport: websocket, poll, or fcm.
	Status    string    `json:"status"`     // The delivery status (sent, failed).
	Error     string    `json:"error"`      // Error message if delivery failed.
	SentAt    time.Time `json:"sent_at"`    // Timestamp of when the notification was sent.
}
