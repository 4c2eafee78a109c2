// The courier app hosts the client-side realtime core: the channel manager
// keeps the order event channel open against the gateway, and the alert
// dispatcher fans incoming notifications out to the terminal presentation
// channels.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pulse/config"
	"pulse/internal/domain/entity"
	"pulse/internal/domain/service"
	"pulse/internal/infra/alert"
	logs "pulse/internal/infra/log"
	"pulse/internal/infra/prefstore"
	"pulse/internal/infra/realtime"
	"pulse/internal/usecase"
	"pulse/internal/usecase/impl"

	"go.uber.org/fx"
)

func main() {
	fx.New(
		injectInfra(),
		injectAlert(),
		injectUsecase(),
		fx.Invoke(
			runClient,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		newRealtimeConfig,
		newDialers,
	)
}

func newRealtimeConfig(cfg *config.Config) *config.RealtimeConfig {
	return cfg.Realtime
}

// newDialers builds the transport preference order: websocket first, long
// poll as the fallback tried on every attempt.
func newDialers(cfg *config.Config, logger *slog.Logger) []service.TransportDialer {
	realtimeCfg := cfg.Realtime.Normalized()

	return []service.TransportDialer{
		realtime.NewWebsocketDialer(realtimeCfg.URL, logger),
		realtime.NewPollDialer(realtimeCfg.URL, realtimeCfg.PollTimeout, logger),
	}
}

func injectAlert() fx.Option {
	return fx.Provide(
		alert.NewVisibilityTracker,
		asVisibility,
		newPreferenceStore,
		newPrompter,
		newTitleBlinker,
		newAlertChannels,
	)
}

func asVisibility(tracker *alert.VisibilityTracker) service.Visibility {
	return tracker
}

func newPreferenceStore(cfg *config.Config) service.PreferenceStore {
	return prefstore.NewFileStore(cfg.Alerts.Normalized().PreferencesPath)
}

func newPrompter() service.PermissionPrompter {
	return alert.NewTerminalPrompter(os.Stdin, os.Stdout)
}

func newTitleBlinker(cfg *config.Config, visibility service.Visibility) service.TitleBlinker {
	alertCfg := cfg.Alerts.Normalized()
	title := cfg.Env.ServiceName
	if title == "" {
		title = "pulse"
	}

	return alert.NewTitleBlinker(os.Stdout, title, alertCfg.TitleBlinkInterval, alertCfg.TitleBlinkCycles, visibility)
}

func newAlertChannels(cfg *config.Config, logger *slog.Logger) []service.AlertChannel {
	alertCfg := cfg.Alerts.Normalized()
	var out io.Writer = os.Stdout

	return []service.AlertChannel{
		alert.NewToastChannel(out),
		alert.NewSoundChannel(logger),
		alert.NewDesktopChannel(""),
		alert.NewFlashChannel(out, alertCfg.FlashDuration),
		// No vibration hardware on the terminal build.
		alert.NewVibrateChannel(nil),
	}
}

func injectUsecase() fx.Option {
	return fx.Provide(
		impl.NewAlertDispatcher,
		impl.NewOrderStore,
		impl.NewChannelManager,
	)
}

type runClientParams struct {
	fx.In
	fx.Lifecycle

	Ctx        context.Context
	Logger     *slog.Logger
	Manager    usecase.ChannelUsecase
	Dispatcher usecase.DispatchUsecase
	Visibility *alert.VisibilityTracker
}

// watchVisibility maps host signals onto window visibility: SIGUSR1 marks
// the terminal hidden, SIGUSR2 marks it visible again. The tracker stops
// the title blink on the visible edge; the manager applies the role
// hidden-disconnect policy and reopens the channel on re-entry.
func watchVisibility(ctx context.Context, tracker *alert.VisibilityTracker, manager usecase.ChannelUsecase) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGUSR2)

	go func() {
		defer signal.Stop(signals)

		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-signals:
				visible := sig == syscall.SIGUSR2
				tracker.SetVisible(visible)
				manager.HandleVisibilityChanged(ctx, visible)
			}
		}
	}()
}

// runClient opens the realtime channel with the session from the
// environment and keeps it alive until shutdown.
func runClient(params runClientParams) {
	credential := os.Getenv("PULSE_ACCESS_TOKEN")
	role := entity.Role(os.Getenv("PULSE_ROLE"))
	if !role.IsValid() {
		role = entity.RoleCourier
	}

	clientCtx, stopClient := context.WithCancel(params.Ctx)

	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			watchVisibility(clientCtx, params.Visibility, params.Manager)

			if credential == "" {
				params.Logger.Warn("PULSE_ACCESS_TOKEN not set, realtime channel stays closed")

				return nil
			}

			// The permission prompt blocks on stdin; keep startup snappy.
			go func() {
				if _, err := params.Dispatcher.RequestPermission(params.Ctx); err != nil {
					params.Logger.Warn("desktop permission prompt failed", slog.Any("error", err))
				}
			}()

			params.Manager.HandleAuthStateChanged(params.Ctx, usecase.AuthState{
				Credential:      credential,
				Role:            role,
				IsAuthenticated: true,
			})

			return nil
		},
		OnStop: func(context.Context) error {
			stopClient()
			params.Manager.Disconnect()

			return nil
		},
	})
}
