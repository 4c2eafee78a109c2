// Package constants holds shared environment and provider identifiers.
package constants

const (
	// EnvDevelop is the local development environment name.
	EnvDevelop = "develop"
	// EnvProduction is the production environment name.
	EnvProduction = "production"
)

const (
	// PubSubProviderLocal selects the local HTTP publisher for development.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle selects the Google Pub/Sub publisher.
	PubSubProviderGoogle = "google"
)

const (
	// TransportWebsocket identifies the streaming transport mode.
	TransportWebsocket = "websocket"
	// TransportPoll identifies the long-poll fallback transport mode.
	TransportPoll = "poll"
	// TransportFCM identifies the FCM push fallback used for offline couriers.
	TransportFCM = "fcm"
)
