package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/extractor"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/internal/notify"
	"github.com/Dhoini/pix-subscription-service/internal/repository"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
)

const postbackLogLimit = 2500

// approvedStatuses статусы шлюза, означающие поступление оплаты
var approvedStatuses = map[string]struct{}{
	"approved":  {},
	"paid":      {},
	"confirmed": {},
	"completed": {},
	"success":   {},
	"aprovado":  {},
	"pago":      {},
}

// IsApproved входит ли нормализованный статус в набор подтвержденных
func IsApproved(status string) bool {
	_, ok := approvedStatuses[status]
	return ok
}

// Activator активирует подписку и возвращает новый срок
type Activator interface {
	Activate(ctx context.Context, subscriberID int64) (time.Time, error)
}

// ReconciliationService сверяет постбэки шлюза с журналом и подписками
type ReconciliationService struct {
	ledger        repository.ChargeRepository
	subscriptions Activator
	notifier      notify.Notifier
	marker        repository.NotificationMarker
	metrics       metrics.SubscriptionMetrics
	log           *logger.Logger
}

// NewReconciliationService создает сервис сверки; marker может быть nil
func NewReconciliationService(
	ledger repository.ChargeRepository,
	subscriptions Activator,
	notifier notify.Notifier,
	marker repository.NotificationMarker,
	m metrics.SubscriptionMetrics,
	log *logger.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		ledger:        ledger,
		subscriptions: subscriptions,
		notifier:      notifier,
		marker:        marker,
		metrics:       m,
		log:           log.Named("webhook"),
	}
}

// ParseEvent нормализует постбэк: id и статус берутся с верхнего уровня,
// а при пустом id оба перечитываются из объекта data.
func ParseEvent(payload map[string]any) domain.PaymentEvent {
	var event domain.PaymentEvent
	event.ExternalTxID, event.Status = txFields(payload)

	data, hasData := extractor.Object(payload["data"])
	if event.ExternalTxID == "" && hasData {
		event.ExternalTxID, event.Status = txFields(data)
	}

	event.TrackingSubscriberID = trackingSubscriber(payload)
	if event.TrackingSubscriberID == 0 && hasData {
		event.TrackingSubscriberID = trackingSubscriber(data)
	}
	return event
}

func txFields(m map[string]any) (string, string) {
	id := strings.TrimSpace(extractor.FirstString(m, "id", "transaction_id", "uuid"))
	status := strings.ToLower(strings.TrimSpace(extractor.FirstString(m, "status", "payment_status", "state")))
	return id, status
}

// trackingSubscriber покупатель из tracking.subscriber_id или tracking.telegram_id
func trackingSubscriber(m map[string]any) int64 {
	tracking, ok := extractor.Object(m["tracking"])
	if !ok {
		return 0
	}
	for _, key := range []string{"subscriber_id", "telegram_id"} {
		if id, ok := extractor.Int64(tracking[key]); ok && id > 0 {
			return id
		}
	}
	return 0
}

// HandleEvent обрабатывает один постбэк. Ошибки не возвращаются: вызывающий всегда отвечает 200,
// итог виден в логах и метриках.
func (s *ReconciliationService) HandleEvent(ctx context.Context, payload map[string]any) domain.ReconcileOutcome {
	outcome := s.handle(ctx, payload)
	s.metrics.IncWebhook(outcome)
	return outcome
}

func (s *ReconciliationService) handle(ctx context.Context, payload map[string]any) domain.ReconcileOutcome {
	if dump, err := json.Marshal(payload); err == nil {
		s.log.Info("INVICTUS_POSTBACK_JSON: %s", truncate(string(dump), postbackLogLimit))
	}

	event := ParseEvent(payload)
	if !event.HasTxID() {
		s.log.Warn("Postback without transaction id ignored")
		return domain.OutcomeIgnored
	}

	status := event.Status
	if status == "" {
		status = domain.ChargeStatusUnknown
	}
	updated, err := s.ledger.UpdateStatus(ctx, event.ExternalTxID, status)
	if err != nil {
		s.log.Error("Failed to update charge %s: %v", event.ExternalTxID, err)
	} else if !updated {
		s.log.Debug("No charge recorded for %s", event.ExternalTxID)
	}

	if !IsApproved(event.Status) {
		s.log.Info("Charge %s status %q recorded", event.ExternalTxID, status)
		return domain.OutcomeRecorded
	}

	subscriberID := s.resolveSubscriber(ctx, event)
	if subscriberID == 0 {
		s.log.Warn("Approved charge %s has no known subscriber", event.ExternalTxID)
		return domain.OutcomeUnresolved
	}

	expiresAt, err := s.subscriptions.Activate(ctx, subscriberID)
	if err != nil {
		s.log.Error("Failed to activate subscriber %d for charge %s: %v", subscriberID, event.ExternalTxID, err)
		return domain.OutcomeFailed
	}
	s.metrics.IncActivated()

	if s.shouldNotify(ctx, event.ExternalTxID) {
		if err := s.notifier.AccessGranted(ctx, subscriberID, expiresAt); err != nil {
			s.log.Error("Access delivery failed for subscriber %d: %v", subscriberID, err)
			s.releaseMarker(ctx, event.ExternalTxID)
		}
	} else {
		s.log.Info("Repeated postback for %s, notification skipped", event.ExternalTxID)
	}
	return domain.OutcomeActivated
}

// resolveSubscriber сначала журнал, затем tracking из постбэка
func (s *ReconciliationService) resolveSubscriber(ctx context.Context, event domain.PaymentEvent) int64 {
	id, found, err := s.ledger.FindSubscriberByExternalTxID(ctx, event.ExternalTxID)
	if err != nil {
		s.log.Error("Failed to look up charge %s: %v", event.ExternalTxID, err)
	}
	if found && id > 0 {
		return id
	}
	return event.TrackingSubscriberID
}

// shouldNotify ошибка маркера не должна лишать покупателя уведомления
func (s *ReconciliationService) shouldNotify(ctx context.Context, txID string) bool {
	if s.marker == nil {
		return true
	}
	first, err := s.marker.MarkOnce(ctx, txID)
	if err != nil {
		s.log.Warn("Notification marker unavailable: %v", err)
		return true
	}
	return first
}

// releaseMarker снимает метку после неудачной доставки: повторный постбэк должен попробовать снова
func (s *ReconciliationService) releaseMarker(ctx context.Context, txID string) {
	if s.marker == nil {
		return
	}
	if err := s.marker.Release(ctx, txID); err != nil {
		s.log.Warn("Failed to release notification marker for %s: %v", txID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
