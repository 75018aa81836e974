package service

import (
	"context"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/gateway"
	"github.com/Dhoini/pix-subscription-service/internal/kafka/producer"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/internal/qr"
	"github.com/Dhoini/pix-subscription-service/internal/repository"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
)

// CheckoutService создает Pix-платеж и готовит то, что увидит покупатель
type CheckoutService struct {
	gateway   gateway.ChargeCreator
	ledger    repository.ChargeRepository
	publisher producer.EventPublisher
	metrics   metrics.SubscriptionMetrics
	qrSize    int
	log       *logger.Logger
}

// NewCheckoutService создает сервис оформления оплаты
func NewCheckoutService(
	gw gateway.ChargeCreator,
	ledger repository.ChargeRepository,
	publisher producer.EventPublisher,
	m metrics.SubscriptionMetrics,
	log *logger.Logger,
) *CheckoutService {
	if publisher == nil {
		publisher = producer.NewNoopPublisher()
	}
	return &CheckoutService{
		gateway:   gw,
		ledger:    ledger,
		publisher: publisher,
		metrics:   m,
		qrSize:    qr.DefaultSize,
		log:       log.Named("checkout"),
	}
}

// CreateCharge вызывает шлюз, пишет запись pending в журнал и собирает предложение.
// Ошибка шлюза или журнала возвращается как есть; запись в журнал при ошибке шлюза не создается.
// Ответ без кода и картинки не ошибка: Deliverable() у результата будет false.
func (s *CheckoutService) CreateCharge(ctx context.Context, subscriberID int64) (*domain.ChargeOffer, error) {
	start := time.Now()
	res, err := s.gateway.CreateCharge(ctx, subscriberID)
	s.metrics.ObserveGatewayLatency(time.Since(start).Seconds())
	if err != nil {
		s.metrics.IncChargeCreated(metrics.ChargeOutcomeGatewayError)
		s.log.Error("Gateway failed for subscriber %d: %v", subscriberID, err)
		return nil, err
	}

	rec := domain.ChargeRecord{
		SubscriberID: subscriberID,
		Status:       domain.ChargeStatusPending,
		RawResponse:  res.RawResponse,
	}
	if res.ExternalTxID != "" {
		txID := res.ExternalTxID
		rec.ExternalTxID = &txID
	}
	if _, err := s.ledger.Record(ctx, rec); err != nil {
		s.metrics.IncChargeCreated(metrics.ChargeOutcomeStoreError)
		s.log.Error("Failed to record charge for subscriber %d: %v", subscriberID, err)
		return nil, err
	}

	offer := &domain.ChargeOffer{
		SubscriberID: subscriberID,
		ExternalTxID: res.ExternalTxID,
		PaymentCode:  res.PaymentCode,
	}
	s.attachImage(offer, res.ImagePayload)

	if offer.HasPaymentCode() {
		s.metrics.IncChargeCreated(metrics.ChargeOutcomeOffer)
	} else {
		s.metrics.IncChargeCreated(metrics.ChargeOutcomeNoPaymentCode)
		s.log.Warn("No payment code for subscriber %d; see INVICTUS_CREATE_JSON", subscriberID)
	}

	event := domain.NewSubscriptionEvent(domain.EventTypeChargeCreated, subscriberID, time.Now())
	event.ExternalTxID = res.ExternalTxID
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish charge event: %v", err)
	}

	return offer, nil
}

// attachImage берет картинку шлюза, а если ее нет или она битая, рисует QR из кода
func (s *CheckoutService) attachImage(offer *domain.ChargeOffer, payload string) {
	if payload != "" {
		img, err := qr.DecodeImage(payload)
		if err == nil {
			offer.QRImage = img
			return
		}
		s.log.Warn("Gateway QR image rejected: %v", err)
	}

	if !offer.HasPaymentCode() {
		return
	}
	img, err := qr.Encode(offer.PaymentCode, s.qrSize)
	if err != nil {
		s.log.Error("Failed to render QR: %v", err)
		return
	}
	offer.QRImage = img
	offer.QRSynthesized = true
}
