// Package gateway sends transformed payloads to Firebase Cloud Messaging
// and surfaces the SDK's classified errors for the orchestrator to
// interpret.
//
// Grounded on the teacher's internal/services/fcm_provider.go for the
// provider shape (a small constructor plus a single Send method returning
// a message ID or a classified failure), generalized from the teacher's
// hand-rolled legacy multicast HTTP call to the official
// firebase.google.com/go Admin SDK's messaging.Client — the SDK already
// speaks FCM v1 and reports failures using the same dash-separated error
// codes (registration-token-not-registered, invalid-argument, ...) spec's
// error classifier matches against, so there is no reason to hand-roll
// the HTTP/OAuth2 plumbing the teacher's provider does for the legacy API.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"

	"github.com/home-assistant/mobile-apps-fcm-push/internal/models"
)

// PushGateway is the contract the orchestrator sends through.
type PushGateway interface {
	Send(ctx context.Context, token string, payload models.OutgoingPayload) (messageID string, err error)
}

// FCMGateway sends one push per call via the Firebase Admin SDK.
type FCMGateway struct {
	client *messaging.Client
}

// NewFCMGateway authenticates against the service account credentials
// file for projectID and builds the underlying messaging client.
func NewFCMGateway(ctx context.Context, projectID, credentialsFile string) (*FCMGateway, error) {
	app, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: projectID},
		option.WithCredentialsFile(credentialsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway: initializing firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("gateway: building messaging client: %w", err)
	}
	return &FCMGateway{client: client}, nil
}

// Send addresses payload at token and hands it to the SDK. The payload's
// generic map is decoded into a messaging.Message via a JSON round trip:
// the transformer already builds exactly the field tree FCM's wire schema
// expects (notification, android, apns, data, webpush, fcm_options), and
// messaging.Message carries the matching json tags, so there is no field
// remapping to write by hand.
func (g *FCMGateway) Send(ctx context.Context, token string, payload models.OutgoingPayload) (string, error) {
	message, err := decodeMessage(token, payload)
	if err != nil {
		return "", fmt.Errorf("gateway: decoding payload: %w", err)
	}
	id, err := g.client.Send(ctx, message)
	if err != nil {
		return "", classify(err)
	}
	return id, nil
}

func decodeMessage(token string, payload models.OutgoingPayload) (*messaging.Message, error) {
	raw := withToken(payload, token)
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var msg messaging.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// withToken returns a shallow copy of payload with "token" set, leaving
// the transformer's original map untouched.
func withToken(payload models.OutgoingPayload, token string) map[string]interface{} {
	out := make(map[string]interface{}, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["token"] = token
	return out
}

// knownErrorCodes are the dash-separated FCM/Admin-SDK error codes spec's
// error classifier recognizes by name, checked in priority order against
// the SDK error's rendered message.
var knownErrorCodes = []string{
	"invalid-registration-token",
	"registration-token-not-registered",
	"invalid-argument",
	"payload-too-large",
}

func classify(err error) *Error {
	message := err.Error()
	code := ""
	for _, known := range knownErrorCodes {
		if strings.Contains(message, known) {
			code = known
			break
		}
	}
	return &Error{Code: code, Message: message}
}

// Error is a classified send failure. Code is empty when the SDK error
// didn't carry one of the recognized codes; the orchestrator's classifier
// then falls back to matching Message text (spec's "payload too large"/
// "message is too big" substring rule) before giving up to InternalError.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway: %s", e.Message)
	}
	return fmt.Sprintf("gateway: %s: %s", e.Code, e.Message)
}
