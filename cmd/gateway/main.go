// The gateway serves the realtime order event fan-out: websocket and
// long-poll channels for the role-scoped apps, Pub/Sub ingest from the
// backend, and FCM push fallback for offline couriers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"pulse/config"
	"pulse/internal/delivery"
	"pulse/internal/delivery/http"
	"pulse/internal/delivery/http/middleware"
	"pulse/internal/delivery/http/router/handler"
	"pulse/internal/domain/service"
	"pulse/internal/infra/auth"
	"pulse/internal/infra/hub"
	logs "pulse/internal/infra/log"
	"pulse/internal/infra/notification"
	"pulse/internal/infra/persistence/postgres"
	"pulse/internal/infra/pubsub"
	"pulse/internal/infra/qrcode"
	"pulse/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Options(
		fx.Provide(
			config.New,
			logs.New,
			context.Background,
			postgres.New,
			newHub,
		),
		pubsub.Module,
	)
}

// newHub creates the fan-out hub with dependency injection
func newHub(cfg *config.Config, logger *slog.Logger) *hub.Hub {
	return hub.New(cfg.Hub, logger)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			postgres.NewDeviceRepository,
			postgres.NewNotificationRepository,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTService,
			newFirebaseService,
			newQRCodeService,
		),
	)
}

// newFirebaseService creates a Firebase service with dependency injection
func newFirebaseService(ctx context.Context, cfg *config.Config) (service.PushService, error) {
	if cfg.Firebase == nil {
		return nil, nil // Firebase is optional
	}

	svc, err := notification.NewFirebaseService(ctx, cfg.Firebase.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase service: %w", err)
	}

	return svc, nil
}

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		// Use default values if not configured
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewFanoutService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewStreamHandler,
			handler.NewPollHandler,
			handler.NewPushHandler,
			handler.NewStatusHandler,
			handler.NewDeviceHandler,
			handler.NewHandoffHandler,
			handler.NewNotificationHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
