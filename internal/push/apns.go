// Package push sends notifications to mobile devices.
package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// Message is a device-independent notification
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// APNSSender delivers messages through Apple Push Notification service
type APNSSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNSSender loads a .p12 certificate and builds a client for the chosen environment
func NewAPNSSender(certPath, certPassword, topic string, production bool) (*APNSSender, error) {
	cert, err := certificate.FromP12File(certPath, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load apns certificate: %w", err)
	}

	client := apns2.NewClient(cert).Development()
	if production {
		client = client.Production()
	}

	return &APNSSender{client: client, topic: topic}, nil
}

// Send pushes msg to the device identified by deviceToken
func (s *APNSSender) Send(ctx context.Context, deviceToken string, msg Message) error {
	p := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
	for k, v := range msg.Data {
		p = p.Custom(k, v)
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     p,
	}

	res, err := s.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
