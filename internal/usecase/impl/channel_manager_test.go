package impl

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/config"
	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/usecase"
)

type fakeTransport struct {
	name   string
	events chan []byte
	errs   chan error
	once   sync.Once
}

func newFakeTransport(name string) *fakeTransport {
	return &fakeTransport{
		name:   name,
		events: make(chan []byte, 16),
		errs:   make(chan error, 1),
	}
}

func (t *fakeTransport) Name() string          { return t.name }
func (t *fakeTransport) Events() <-chan []byte { return t.events }
func (t *fakeTransport) Errors() <-chan error  { return t.errs }

func (t *fakeTransport) Close() error {
	t.once.Do(func() { close(t.events) })

	return nil
}

// fakeDialer returns the scripted results in order and keeps returning the
// last one once the script is exhausted.
type fakeDialer struct {
	mu      sync.Mutex
	name    string
	script  []dialResult
	dials   int
	lastTok string
}

type dialResult struct {
	transport *fakeTransport
	err       error
}

func (d *fakeDialer) Name() string { return d.name }

func (d *fakeDialer) Dial(_ context.Context, credential string, _ entity.Role) (service.Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	d.lastTok = credential

	idx := d.dials - 1
	if idx >= len(d.script) {
		idx = len(d.script) - 1
	}
	result := d.script[idx]
	if result.err != nil {
		return nil, result.err
	}

	return result.transport, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

func (d *fakeDialer) lastCredential() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.lastTok
}

type fakeDispatcher struct {
	mu        sync.Mutex
	requests  []*entity.NotificationRequest
	cancelled int
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req *entity.NotificationRequest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.requests = append(d.requests, req)
}

func (d *fakeDispatcher) RequestPermission(context.Context) (entity.PermissionState, error) {
	return entity.PermissionGranted, nil
}

func (d *fakeDispatcher) SetSoundEnabled(bool) error { return nil }

func (d *fakeDispatcher) Preferences() entity.AlertPreferences {
	return entity.DefaultAlertPreferences()
}

func (d *fakeDispatcher) CancelActive() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelled++
}

func (d *fakeDispatcher) dispatched() []*entity.NotificationRequest {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]*entity.NotificationRequest(nil), d.requests...)
}

func testRealtimeConfig() *config.RealtimeConfig {
	return &config.RealtimeConfig{
		DialTimeout:       100 * time.Millisecond,
		ReconnectAttempts: 3,
		ReconnectDelay:    time.Millisecond,
		MaxReconnectDelay: 5 * time.Millisecond,
		PollTimeout:       100 * time.Millisecond,
	}
}

func newTestManager(t *testing.T, dialers ...service.TransportDialer) (*channelManager, *fakeDispatcher, *OrderStore) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	dispatcher := &fakeDispatcher{}
	store := NewOrderStore(logger)
	manager := NewChannelManager(testRealtimeConfig(), logger, dialers, dispatcher, store).(*channelManager)
	t.Cleanup(manager.Disconnect)

	return manager, dispatcher, store
}

func waitForState(t *testing.T, m *channelManager, want entity.ConnectionState) {
	t.Helper()

	require.Eventually(t, func() bool {
		return m.State() == want
	}, 2*time.Second, time.Millisecond, "expected state %s, got %s", want, m.State())
}

func TestChannelManager_ConnectAndReceive(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport("websocket")
	dialer := &fakeDialer{name: "websocket", script: []dialResult{{transport: transport}}}
	manager, dispatcher, store := newTestManager(t, dialer)

	manager.Connect(context.Background(), "token-1", entity.RoleAdmin)
	waitForState(t, manager, entity.StateConnected)
	assert.Equal(t, "token-1", dialer.lastCredential())

	transport.events <- []byte(`{
		"event": "orderCreated",
		"order": {"id": "ord-1", "customer_name": "Sara", "total_price": 185, "status": "pending"}
	}`)

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)

	requests := dispatcher.dispatched()
	require.Len(t, requests, 1)
	assert.Equal(t, "🔔 新訂單", requests[0].Title)
	assert.Contains(t, requests[0].Message, "Sara")
	assert.Contains(t, requests[0].Message, "185")
	assert.True(t, requests[0].Channels.Sound)
	assert.True(t, requests[0].Channels.Desktop)
}

func TestChannelManager_EmptyCredentialIsNoOp(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{name: "websocket", script: []dialResult{{transport: newFakeTransport("websocket")}}}
	manager, _, _ := newTestManager(t, dialer)

	manager.Connect(context.Background(), "", entity.RoleAdmin)

	assert.Equal(t, entity.StateDisconnected, manager.State())
	assert.Zero(t, dialer.dialCount())
}

func TestChannelManager_RetryExhaustionFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		role       entity.Role
		wantAlerts int
	}{
		{name: "admin sees the connectivity alert once", role: entity.RoleAdmin, wantAlerts: 1},
		{name: "customers fail silently", role: entity.RoleCustomer, wantAlerts: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dialer := &fakeDialer{
				name:   "websocket",
				script: []dialResult{{err: assert.AnError}},
			}
			manager, dispatcher, _ := newTestManager(t, dialer)

			manager.Connect(context.Background(), "token-1", tt.role)
			waitForState(t, manager, entity.StateFailed)

			assert.Equal(t, 3, dialer.dialCount())
			assert.Len(t, dispatcher.dispatched(), tt.wantAlerts)
		})
	}
}

func TestChannelManager_FallsBackToSecondaryTransport(t *testing.T) {
	t.Parallel()

	primary := &fakeDialer{name: "websocket", script: []dialResult{{err: assert.AnError}}}
	transport := newFakeTransport("poll")
	secondary := &fakeDialer{name: "poll", script: []dialResult{{transport: transport}}}
	manager, _, _ := newTestManager(t, primary, secondary)

	manager.Connect(context.Background(), "token-1", entity.RoleCourier)
	waitForState(t, manager, entity.StateConnected)

	assert.Equal(t, 1, primary.dialCount())
	assert.Equal(t, 1, secondary.dialCount())
}

func TestChannelManager_ReconnectsAfterTransportDrop(t *testing.T) {
	t.Parallel()

	first := newFakeTransport("websocket")
	second := newFakeTransport("websocket")
	dialer := &fakeDialer{name: "websocket", script: []dialResult{
		{transport: first},
		{transport: second},
	}}
	manager, _, store := newTestManager(t, dialer)

	manager.Connect(context.Background(), "token-1", entity.RoleAdmin)
	waitForState(t, manager, entity.StateConnected)

	first.Close()

	require.Eventually(t, func() bool { return dialer.dialCount() == 2 }, 2*time.Second, time.Millisecond)
	waitForState(t, manager, entity.StateConnected)

	second.events <- []byte(`{"event": "orderCreated", "order": {"id": "ord-2", "status": "pending"}}`)
	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)
}

func TestChannelManager_DisconnectStopsProcessing(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport("websocket")
	dialer := &fakeDialer{name: "websocket", script: []dialResult{{transport: transport}}}
	manager, dispatcher, store := newTestManager(t, dialer)

	manager.Connect(context.Background(), "token-1", entity.RoleCustomer)
	waitForState(t, manager, entity.StateConnected)

	manager.Disconnect()
	assert.Equal(t, entity.StateDisconnected, manager.State())

	// Payload racing past the closed session must not mutate the collection.
	select {
	case transport.events <- []byte(`{"event": "orderCreated", "order": {"id": "ord-3", "status": "pending"}}`):
	default:
	}
	time.Sleep(10 * time.Millisecond)

	assert.Zero(t, store.Len())

	dispatcher.mu.Lock()
	cancelled := dispatcher.cancelled
	dispatcher.mu.Unlock()
	assert.Equal(t, 1, cancelled)
}

func TestChannelManager_MalformedEventIsDropped(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport("websocket")
	dialer := &fakeDialer{name: "websocket", script: []dialResult{{transport: transport}}}
	manager, _, store := newTestManager(t, dialer)

	manager.Connect(context.Background(), "token-1", entity.RoleAdmin)
	waitForState(t, manager, entity.StateConnected)

	transport.events <- []byte(`{"event": "mysteryEvent"}`)
	transport.events <- []byte(`not json at all`)
	transport.events <- []byte(`{"event": "orderCreated", "order": {"id": "ord-4", "status": "pending"}}`)

	require.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, entity.StateConnected, manager.State())
}

func TestChannelManager_VisibilityReentryReconnects(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{name: "websocket", script: []dialResult{
		{err: assert.AnError},
		{err: assert.AnError},
		{err: assert.AnError},
		{transport: newFakeTransport("websocket")},
	}}
	manager, _, _ := newTestManager(t, dialer)

	manager.Connect(context.Background(), "token-1", entity.RoleCourier)
	waitForState(t, manager, entity.StateFailed)
	require.Equal(t, 3, dialer.dialCount())

	// Regained visibility retries the channel with the stored session.
	manager.HandleVisibilityChanged(context.Background(), true)
	waitForState(t, manager, entity.StateConnected)
	assert.Equal(t, 4, dialer.dialCount())
	assert.Equal(t, "token-1", dialer.lastCredential())
}

func TestChannelManager_HiddenDisconnectPolicy(t *testing.T) {
	saved := hiddenDisconnectPolicy
	hiddenDisconnectPolicy = map[entity.Role]time.Duration{
		entity.RoleAdmin:   0,
		entity.RoleCourier: 10 * time.Millisecond,
	}
	t.Cleanup(func() { hiddenDisconnectPolicy = saved })

	connect := func(t *testing.T, role entity.Role) *channelManager {
		t.Helper()

		transport := newFakeTransport("websocket")
		dialer := &fakeDialer{name: "websocket", script: []dialResult{{transport: transport}}}
		manager, _, _ := newTestManager(t, dialer)

		manager.Connect(context.Background(), "token-1", role)
		waitForState(t, manager, entity.StateConnected)

		return manager
	}

	t.Run("courier disconnects after the hidden grace period", func(t *testing.T) {
		manager := connect(t, entity.RoleCourier)

		manager.HandleVisibilityChanged(context.Background(), false)
		waitForState(t, manager, entity.StateDisconnected)
	})

	t.Run("admin stays connected while hidden", func(t *testing.T) {
		manager := connect(t, entity.RoleAdmin)

		manager.HandleVisibilityChanged(context.Background(), false)
		time.Sleep(40 * time.Millisecond)

		assert.Equal(t, entity.StateConnected, manager.State())
	})

	t.Run("regained visibility cancels the pending disconnect", func(t *testing.T) {
		manager := connect(t, entity.RoleCourier)

		manager.HandleVisibilityChanged(context.Background(), false)
		manager.HandleVisibilityChanged(context.Background(), true)
		time.Sleep(40 * time.Millisecond)

		assert.Equal(t, entity.StateConnected, manager.State())
	})
}

func TestChannelManager_AuthBroadcastDrivesChannel(t *testing.T) {
	t.Parallel()

	transport := newFakeTransport("websocket")
	dialer := &fakeDialer{name: "websocket", script: []dialResult{{transport: transport}}}
	manager, _, _ := newTestManager(t, dialer)

	manager.HandleAuthStateChanged(context.Background(), usecase.AuthState{
		Credential:      "token-1",
		Role:            entity.RoleCourier,
		IsAuthenticated: true,
	})
	waitForState(t, manager, entity.StateConnected)

	manager.HandleAuthStateChanged(context.Background(), usecase.AuthState{
		Role: entity.RoleCourier,
	})
	assert.Equal(t, entity.StateDisconnected, manager.State())
}
