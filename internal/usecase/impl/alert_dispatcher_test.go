package impl

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
)

type spyChannel struct {
	kind      service.ChannelKind
	mu        sync.Mutex
	calls     []*entity.NotificationRequest
	err       error
	panicking bool
	supported bool
}

func (c *spyChannel) Kind() service.ChannelKind { return c.kind }

func (c *spyChannel) Notify(_ context.Context, req *entity.NotificationRequest) error {
	c.mu.Lock()
	c.calls = append(c.calls, req)
	c.mu.Unlock()

	if c.panicking {
		panic("channel blew up")
	}

	return c.err
}

func (c *spyChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.calls)
}

// capChannel is a spyChannel that also reports platform support.
type capChannel struct {
	spyChannel
}

func (c *capChannel) Supported() bool { return c.supported }

type fakeBlinker struct {
	mu      sync.Mutex
	started []string
	stops   int
}

func (b *fakeBlinker) Start(marker string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = append(b.started, marker)
}

func (b *fakeBlinker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
}

type fakeVisibility struct {
	hidden bool
}

func (v *fakeVisibility) Hidden() bool { return v.hidden }

func (v *fakeVisibility) OnVisible(func()) (cancel func()) { return func() {} }

type fakePrompter struct {
	state   entity.PermissionState
	err     error
	prompts int
	block   chan struct{}
}

func (p *fakePrompter) Prompt(ctx context.Context) (entity.PermissionState, error) {
	p.prompts++
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return entity.PermissionDefault, ctx.Err()
		}
	}

	return p.state, p.err
}

type memPrefStore struct {
	mu      sync.Mutex
	prefs   entity.AlertPreferences
	loadErr error
	saveErr error
	saves   int
}

func newMemPrefStore() *memPrefStore {
	return &memPrefStore{prefs: entity.DefaultAlertPreferences()}
}

func (s *memPrefStore) Load() (entity.AlertPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return entity.AlertPreferences{}, s.loadErr
	}

	return s.prefs, nil
}

func (s *memPrefStore) Save(prefs entity.AlertPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.prefs = prefs
	s.saves++

	return nil
}

type dispatcherFixture struct {
	toast      *spyChannel
	sound      *spyChannel
	desktop    *spyChannel
	flash      *spyChannel
	vibrate    *capChannel
	blinker    *fakeBlinker
	visibility *fakeVisibility
	prompter   *fakePrompter
	prefStore  *memPrefStore
}

func newDispatcherFixture() *dispatcherFixture {
	return &dispatcherFixture{
		toast:      &spyChannel{kind: service.ChannelToast},
		sound:      &spyChannel{kind: service.ChannelSound},
		desktop:    &spyChannel{kind: service.ChannelDesktop},
		flash:      &spyChannel{kind: service.ChannelFlash},
		vibrate:    &capChannel{spyChannel: spyChannel{kind: service.ChannelVibrate, supported: true}},
		blinker:    &fakeBlinker{},
		visibility: &fakeVisibility{},
		prompter:   &fakePrompter{state: entity.PermissionGranted},
		prefStore:  newMemPrefStore(),
	}
}

func (f *dispatcherFixture) build(t *testing.T) *alertDispatcher {
	t.Helper()

	dispatcher, err := NewAlertDispatcher(
		slog.New(slog.DiscardHandler),
		[]service.AlertChannel{f.toast, f.sound, f.desktop, f.flash, f.vibrate},
		f.blinker,
		f.visibility,
		f.prompter,
		f.prefStore,
	)
	require.NoError(t, err)

	return dispatcher.(*alertDispatcher)
}

func allChannelsRequest() *entity.NotificationRequest {
	return &entity.NotificationRequest{
		Title:    "🔔 新訂單",
		Message:  "Sara 的新訂單，金額 185",
		Severity: entity.SeverityInfo,
		Channels: entity.ChannelSet{Sound: true, Desktop: true, Flash: true, Vibrate: true},
		Duration: 10 * time.Second,
	}
}

func TestAlertDispatcher_ToastAlwaysFires(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture()
	dispatcher := fixture.build(t)

	// A bare request with no extra channels still produces the toast.
	dispatcher.Dispatch(context.Background(), &entity.NotificationRequest{
		Title:   "訂單已更新",
		Message: "訂單 ord-1 內容已更新",
	})

	assert.Equal(t, 1, fixture.toast.callCount())
	assert.Zero(t, fixture.sound.callCount())
	assert.Zero(t, fixture.desktop.callCount())
	assert.Zero(t, fixture.flash.callCount())
	assert.Zero(t, fixture.vibrate.callCount())
}

func TestAlertDispatcher_GatedChannels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(f *dispatcherFixture)
		wantSound   int
		wantDesktop int
		wantFlash   int
		wantVibrate int
	}{
		{
			name: "all granted fires everything",
			setup: func(f *dispatcherFixture) {
				f.prefStore.prefs.DesktopPermission = entity.PermissionGranted
			},
			wantSound: 1, wantDesktop: 1, wantFlash: 1, wantVibrate: 1,
		},
		{
			name: "sound disabled suppresses only sound",
			setup: func(f *dispatcherFixture) {
				f.prefStore.prefs.SoundEnabled = false
				f.prefStore.prefs.DesktopPermission = entity.PermissionGranted
			},
			wantSound: 0, wantDesktop: 1, wantFlash: 1, wantVibrate: 1,
		},
		{
			name: "desktop denied suppresses only desktop",
			setup: func(f *dispatcherFixture) {
				f.prefStore.prefs.DesktopPermission = entity.PermissionDenied
			},
			wantSound: 1, wantDesktop: 0, wantFlash: 1, wantVibrate: 1,
		},
		{
			name: "desktop default counts as not granted",
			setup: func(f *dispatcherFixture) {
				f.prefStore.prefs.DesktopPermission = entity.PermissionDefault
			},
			wantSound: 1, wantDesktop: 0, wantFlash: 1, wantVibrate: 1,
		},
		{
			name: "unsupported vibration hardware skips vibrate",
			setup: func(f *dispatcherFixture) {
				f.prefStore.prefs.DesktopPermission = entity.PermissionGranted
				f.vibrate.supported = false
			},
			wantSound: 1, wantDesktop: 1, wantFlash: 1, wantVibrate: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fixture := newDispatcherFixture()
			tt.setup(fixture)
			dispatcher := fixture.build(t)

			dispatcher.Dispatch(context.Background(), allChannelsRequest())

			assert.Equal(t, 1, fixture.toast.callCount(), "toast")
			assert.Equal(t, tt.wantSound, fixture.sound.callCount(), "sound")
			assert.Equal(t, tt.wantDesktop, fixture.desktop.callCount(), "desktop")
			assert.Equal(t, tt.wantFlash, fixture.flash.callCount(), "flash")
			assert.Equal(t, tt.wantVibrate, fixture.vibrate.callCount(), "vibrate")
		})
	}
}

func TestAlertDispatcher_ChannelFailureIsContained(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture()
	fixture.prefStore.prefs.DesktopPermission = entity.PermissionGranted
	fixture.sound.err = assert.AnError
	fixture.desktop.panicking = true
	dispatcher := fixture.build(t)

	require.NotPanics(t, func() {
		dispatcher.Dispatch(context.Background(), allChannelsRequest())
	})

	// Channels after the failing ones still ran.
	assert.Equal(t, 1, fixture.flash.callCount())
	assert.Equal(t, 1, fixture.vibrate.callCount())
}

func TestAlertDispatcher_TitleBlinkOnlyWhenHidden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		hidden     bool
		channels   entity.ChannelSet
		wantBlinks int
	}{
		{name: "hidden with sound blinks", hidden: true, channels: entity.ChannelSet{Sound: true}, wantBlinks: 1},
		{name: "hidden with desktop blinks", hidden: true, channels: entity.ChannelSet{Desktop: true}, wantBlinks: 1},
		{name: "visible never blinks", hidden: false, channels: entity.ChannelSet{Sound: true, Desktop: true}, wantBlinks: 0},
		{name: "quiet channels never blink", hidden: true, channels: entity.ChannelSet{Flash: true, Vibrate: true}, wantBlinks: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fixture := newDispatcherFixture()
			fixture.visibility.hidden = tt.hidden
			dispatcher := fixture.build(t)

			dispatcher.Dispatch(context.Background(), &entity.NotificationRequest{
				Title:    "新配送任務",
				Channels: tt.channels,
			})

			fixture.blinker.mu.Lock()
			defer fixture.blinker.mu.Unlock()
			assert.Len(t, fixture.blinker.started, tt.wantBlinks)
			if tt.wantBlinks > 0 {
				assert.Equal(t, "新配送任務", fixture.blinker.started[0])
			}
		})
	}
}

func TestAlertDispatcher_CancelActiveStopsBlink(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture()
	dispatcher := fixture.build(t)

	dispatcher.CancelActive()

	fixture.blinker.mu.Lock()
	defer fixture.blinker.mu.Unlock()
	assert.Equal(t, 1, fixture.blinker.stops)
}

func TestAlertDispatcher_RequestPermission(t *testing.T) {
	t.Parallel()

	t.Run("prompt result is persisted", func(t *testing.T) {
		t.Parallel()

		fixture := newDispatcherFixture()
		fixture.prompter.state = entity.PermissionGranted
		dispatcher := fixture.build(t)

		state, err := dispatcher.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.PermissionGranted, state)
		assert.Equal(t, entity.PermissionGranted, fixture.prefStore.prefs.DesktopPermission)
	})

	t.Run("resolved permission never re-prompts", func(t *testing.T) {
		t.Parallel()

		fixture := newDispatcherFixture()
		fixture.prefStore.prefs.DesktopPermission = entity.PermissionDenied
		dispatcher := fixture.build(t)

		state, err := dispatcher.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.Equal(t, entity.PermissionDenied, state)
		assert.Zero(t, fixture.prompter.prompts)
	})
}

func TestAlertDispatcher_SetSoundEnabledPersists(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture()
	dispatcher := fixture.build(t)

	require.NoError(t, dispatcher.SetSoundEnabled(false))
	assert.False(t, dispatcher.Preferences().SoundEnabled)
	assert.False(t, fixture.prefStore.prefs.SoundEnabled)

	// The toggle must survive without disturbing the permission state.
	assert.Equal(t, entity.PermissionDefault, fixture.prefStore.prefs.DesktopPermission)
}

func TestAlertDispatcher_LoadFailureFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	fixture := newDispatcherFixture()
	fixture.prefStore.loadErr = assert.AnError
	dispatcher := fixture.build(t)

	prefs := dispatcher.Preferences()
	assert.True(t, prefs.SoundEnabled)
	assert.Equal(t, entity.PermissionDefault, prefs.DesktopPermission)
}
