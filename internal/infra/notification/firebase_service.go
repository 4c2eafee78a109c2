// Package notification implements the FCM push fallback the gateway uses to
// reach couriers without a live realtime channel.
package notification

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"pulse/internal/domain/service"
	"pulse/internal/errors"
)

// fcmBatchLimit is the Firebase cap on tokens per multicast request.
const fcmBatchLimit = 500

type firebaseService struct {
	client *messaging.Client
}

// NewFirebaseService creates the FCM push service from a service account
// credentials file.
func NewFirebaseService(ctx context.Context, credentialsPath string) (service.PushService, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, errors.Wrap(err, "initialize firebase app")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "create messaging client")
	}

	return &firebaseService{client: client}, nil
}

// SendSingleNotification sends a push notification to a single device token
func (s *firebaseService) SendSingleNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	if _, err := s.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	}); err != nil {
		return errors.Wrap(err, "send push notification")
	}

	return nil
}

// SendBatchNotification sends push notifications to multiple device tokens.
// Returns success count, failure count, and the tokens FCM reported as dead
// so the caller can prune their device rows.
func (s *firebaseService) SendBatchNotification(ctx context.Context, tokens []string, title, body string, data map[string]string) (successCount, failureCount int, invalidTokens []string, err error) {
	if len(tokens) == 0 {
		return 0, 0, nil, nil
	}
	if len(tokens) > fcmBatchLimit {
		return 0, 0, nil, errors.Errorf("token count exceeds limit: %d (max %d)", len(tokens), fcmBatchLimit)
	}

	response, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return 0, 0, nil, errors.Wrap(err, "send multicast notification")
	}

	invalidTokens = make([]string, 0)
	for idx, sent := range response.Responses {
		if sent.Error == nil {
			continue
		}
		if messaging.IsInvalidArgument(sent.Error) || messaging.IsUnregistered(sent.Error) {
			invalidTokens = append(invalidTokens, tokens[idx])
		}
	}

	return response.SuccessCount, response.FailureCount, invalidTokens, nil
}
