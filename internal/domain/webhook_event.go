package domain

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEventType тип события подписки, публикуемого наружу
type WebhookEventType string

const (
	EventTypeChargeCreated         WebhookEventType = "charge.created"
	EventTypeSubscriptionActivated WebhookEventType = "subscription.activated"
	EventTypeSubscriptionExpired   WebhookEventType = "subscription.expired"
)

// PaymentEvent нормализованный постбэк шлюза
type PaymentEvent struct {
	ExternalTxID string
	Status       string
	// TrackingSubscriberID покупатель из поля tracking, 0 если его нет
	TrackingSubscriberID int64
}

// HasTxID пришел ли идентификатор транзакции
func (e PaymentEvent) HasTxID() bool {
	return e.ExternalTxID != ""
}

// ReconcileOutcome итог обработки одного постбэка
type ReconcileOutcome string

const (
	OutcomeIgnored      ReconcileOutcome = "ignored"
	OutcomeRecorded     ReconcileOutcome = "recorded"
	OutcomeActivated    ReconcileOutcome = "activated"
	OutcomeUnresolved   ReconcileOutcome = "unresolved"
	OutcomeFailed       ReconcileOutcome = "failed"
	OutcomeUnauthorized ReconcileOutcome = "unauthorized"
)

// SubscriptionEvent событие жизненного цикла подписки для Kafka
type SubscriptionEvent struct {
	ID           uuid.UUID        `json:"id"`
	Type         WebhookEventType `json:"type"`
	SubscriberID int64            `json:"subscriber_id"`
	ExternalTxID string           `json:"external_tx_id,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// NewSubscriptionEvent создает событие с новым идентификатором
func NewSubscriptionEvent(eventType WebhookEventType, subscriberID int64, now time.Time) SubscriptionEvent {
	return SubscriptionEvent{
		ID:           uuid.New(),
		Type:         eventType,
		SubscriberID: subscriberID,
		Timestamp:    now.UTC(),
	}
}
