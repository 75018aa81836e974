package notify

import (
	"context"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/kafka/producer"
)

// EventNotifier превращает уведомления в события Kafka
type EventNotifier struct {
	publisher producer.EventPublisher
	now       func() time.Time
}

// NewEventNotifier создает уведомитель поверх публикатора событий
func NewEventNotifier(publisher producer.EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher, now: time.Now}
}

// AccessGranted публикует subscription.activated со сроком доступа в UTC
func (n *EventNotifier) AccessGranted(ctx context.Context, subscriberID int64, expiresAt time.Time) error {
	event := domain.NewSubscriptionEvent(domain.EventTypeSubscriptionActivated, subscriberID, n.now())
	exp := expiresAt.UTC()
	event.ExpiresAt = &exp
	return n.publisher.Publish(ctx, event)
}

// RenewalDue публикует subscription.expired
func (n *EventNotifier) RenewalDue(ctx context.Context, subscriberID int64) error {
	return n.publisher.Publish(ctx, domain.NewSubscriptionEvent(domain.EventTypeSubscriptionExpired, subscriberID, n.now()))
}
