package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"pulse/config"
	deliverycontext "pulse/internal/delivery/context"
	"pulse/internal/domain/constants"
	"pulse/internal/domain/entity"
	"pulse/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

// PubSubMessage represents the structure of a Pub/Sub push message
type PubSubMessage struct {
	Message struct {
		Data        string            `json:"data"`
		Attributes  map[string]string `json:"attributes,omitempty"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PushHandler ingests order events pushed by the backend through Pub/Sub
// and hands them to the fan-out use case.
type PushHandler struct {
	verifyPushAuth bool
	logger         *slog.Logger
	fanout         usecase.FanoutUsecase
}

// NewPushHandler is the constructor for PushHandler, injected by Fx.
func NewPushHandler(cfg *config.Config, logger *slog.Logger, fanout usecase.FanoutUsecase) *PushHandler {
	// Only Google Pub/Sub pushes carry a verifiable ID token, and local
	// development has no service account to sign one.
	verifyPushAuth := cfg.PubSub != nil &&
		cfg.PubSub.Provider == constants.PubSubProviderGoogle &&
		cfg.Env.Env != constants.EnvDevelop

	return &PushHandler{verifyPushAuth: verifyPushAuth, logger: logger, fanout: fanout}
}

// HandlePush handles POST /push. Malformed envelopes and events are acked
// with 2xx so Pub/Sub does not redeliver poison messages; only transient
// fan-out failures return 5xx to trigger a retry.
func (h *PushHandler) HandlePush(c echo.Context) error {
	ctx := c.Request().Context()
	logger := deliverycontext.GetLogger(ctx)
	if logger == nil {
		logger = h.logger
	}

	if h.verifyPushAuth {
		if err := verifyPubSubToken(c.Request()); err != nil {
			logger.Warn("rejecting push with invalid Pub/Sub token", slog.Any("error", err))

			return c.NoContent(http.StatusUnauthorized)
		}
	}

	var msg PubSubMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&msg); err != nil {
		logger.Warn("dropping undecodable push envelope", slog.Any("error", err))

		return c.NoContent(http.StatusNoContent)
	}

	data, err := base64.StdEncoding.DecodeString(msg.Message.Data)
	if err != nil {
		logger.Warn("dropping push message with invalid base64 data",
			slog.String("message_id", msg.Message.MessageID),
			slog.Any("error", err))

		return c.NoContent(http.StatusNoContent)
	}

	event, err := entity.ParseOrderEvent(data)
	if err != nil {
		logger.Warn("dropping malformed order event",
			slog.String("message_id", msg.Message.MessageID),
			slog.Any("error", err))

		return c.NoContent(http.StatusNoContent)
	}

	if err := h.fanout.HandleOrderEvent(ctx, event); err != nil {
		logger.Error("order event fan-out failed, requesting redelivery",
			slog.String("message_id", msg.Message.MessageID),
			slog.String("order_id", event.TargetOrderID()),
			slog.Any("error", err))

		return c.NoContent(http.StatusInternalServerError)
	}

	return c.NoContent(http.StatusNoContent)
}

// verifyPubSubToken validates the ID token Google Pub/Sub signs into push
// requests. Reference:
// https://cloud.google.com/pubsub/docs/push#authenticating_standard_push_requests
func verifyPubSubToken(req *http.Request) error {
	authHeader := req.Header.Get("Authorization")
	if authHeader == "" {
		return errors.New("missing authorization header")
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		return errors.New("invalid authorization header format")
	}

	// The token audience is the URL of this push endpoint.
	scheme := "https"
	if req.TLS == nil {
		scheme = "http"
	}
	audience := fmt.Sprintf("%s://%s%s", scheme, req.Host, req.URL.Path)

	payload, err := idtoken.Validate(req.Context(), token, audience)
	if err != nil {
		return errors.Wrap(err, "failed to validate token")
	}

	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return errors.Errorf("invalid issuer: %s", payload.Issuer)
	}
	if emailVerified, ok := payload.Claims["email_verified"].(bool); ok && !emailVerified {
		return errors.New("email not verified")
	}

	return nil
}
