package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"circles/backend/pkg/logger"
)

// Notification titles.
const (
	EventNotifTitle  = "New Event Invite"
	FriendNotifTitle = "New Friend"
	CircleNotifTitle = "New Circle"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// maxConcurrentSends bounds the fan-out to FCM.
const maxConcurrentSends = 8

// Sender delivers push notifications through FCM. Delivery is
// fire-and-forget: failures are logged and never propagated to the
// mutation that triggered them. An empty server key disables delivery.
type Sender struct {
	client    *resty.Client
	endpoint  string
	serverKey string
	log       *zap.Logger
}

// NewSender creates an FCM sender.
func NewSender(serverKey string) *Sender {
	return &Sender{
		client:    resty.New(),
		endpoint:  defaultEndpoint,
		serverKey: serverKey,
		log:       logger.Get(),
	}
}

type fcmMessage struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Send delivers a single notification to one device token.
func (s *Sender) Send(ctx context.Context, token, title, body string) error {
	if s.serverKey == "" || token == "" {
		return nil
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "key="+s.serverKey).
		SetBody(fcmMessage{
			To:           token,
			Notification: fcmNotification{Title: title, Body: body},
		}).
		Post(s.endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode())
	}
	return nil
}

// SendAll fans a notification out to many tokens concurrently.
// Failures are logged per token and swallowed.
func (s *Sender) SendAll(ctx context.Context, tokens []string, title, body string) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSends)
	for _, token := range tokens {
		token := token
		g.Go(func() error {
			if err := s.Send(ctx, token, title, body); err != nil {
				s.log.Warn("unable to send notification",
					zap.String("title", title),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// EventInvite notifies the circle's members about a new event.
func (s *Sender) EventInvite(ctx context.Context, tokens []string, eventName, circleName string) {
	body := fmt.Sprintf(
		"You've been invited to %s for your Circle called %s. Open the app for more details!",
		eventName, circleName,
	)
	s.SendAll(ctx, tokens, EventNotifTitle, body)
}

// NewCircle notifies people newly added to a circle.
func (s *Sender) NewCircle(ctx context.Context, tokens []string, circleName string) {
	body := fmt.Sprintf(
		"You've been added to a new Circle called %s. Open the app for more details!",
		circleName,
	)
	s.SendAll(ctx, tokens, CircleNotifTitle, body)
}

// NewFriend notifies people someone has added as friends.
func (s *Sender) NewFriend(ctx context.Context, tokens []string, adderName string) {
	body := fmt.Sprintf("%s has added you as a friend!", adderName)
	s.SendAll(ctx, tokens, FriendNotifTitle, body)
}
