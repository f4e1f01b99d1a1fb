package workflow

import (
	"context"
	"time"

	"github.com/mmdatafocus/estate_backend/config"
	"github.com/mmdatafocus/estate_backend/utils"
)

// DefaultNotifyTarget addresses every company admin.
const DefaultNotifyTarget = "role:admin"

// Notifier delivers a push notification to the users matched by target.
type Notifier interface {
	Send(ctx context.Context, target, title, body string, payload map[string]any) error
}

// PubSubNotifier hands notifications to the push worker through a Pub/Sub topic.
type PubSubNotifier struct {
	Topic   string
	publish func(ctx context.Context, topic string, msg config.NotificationMessage) (string, error)
}

func NewPubSubNotifier(topic string) *PubSubNotifier {
	if topic == "" {
		topic = config.NotificationTopic()
	}
	return &PubSubNotifier{Topic: topic, publish: config.PublishNotification}
}

func (n *PubSubNotifier) Send(ctx context.Context, target, title, body string, payload map[string]any) error {
	if target == "" {
		target = DefaultNotifyTarget
	}
	msg := config.NotificationMessage{
		Target:        target,
		Title:         title,
		Body:          body,
		Payload:       payload,
		CorrelationId: utils.CorrelationIdFromContextOrNew(ctx),
		SentAt:        time.Now().UTC(),
	}
	_, err := n.publish(ctx, n.Topic, msg)
	return err
}
