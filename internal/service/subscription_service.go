package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/repository"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
)

// SubscriptionService правила жизненного цикла подписки поверх хранилища
type SubscriptionService struct {
	repo   repository.SubscriberRepository
	period time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// NewSubscriptionService создает сервис; period длительность оплаченного периода
func NewSubscriptionService(repo repository.SubscriberRepository, period time.Duration, log *logger.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo:   repo,
		period: period,
		now:    time.Now,
		log:    log,
	}
}

// Activate активирует подписку на период от текущего момента.
// Прежний срок заменяется, а не продлевается.
func (s *SubscriptionService) Activate(ctx context.Context, subscriberID int64) (time.Time, error) {
	if subscriberID <= 0 {
		return time.Time{}, fmt.Errorf("%w: subscriber id %d", domain.ErrInvalidInput, subscriberID)
	}
	expiresAt := s.now().UTC().Add(s.period)
	if err := s.repo.Activate(ctx, subscriberID, expiresAt); err != nil {
		return time.Time{}, err
	}
	s.log.Info("Subscriber %d active until %s", subscriberID, expiresAt.Format(time.RFC3339))
	return expiresAt, nil
}

// Deactivate снимает подписку; повторный вызов ничего не меняет
func (s *SubscriptionService) Deactivate(ctx context.Context, subscriberID int64) error {
	if err := s.repo.Deactivate(ctx, subscriberID); err != nil {
		return err
	}
	s.log.Info("Subscriber %d deactivated", subscriberID)
	return nil
}

// Expire снимает подписку, истекшую к asOf. Продленная тем временем подписка не трогается.
func (s *SubscriptionService) Expire(ctx context.Context, subscriberID int64, asOf time.Time) (bool, error) {
	expired, err := s.repo.DeactivateExpired(ctx, subscriberID, asOf)
	if err != nil {
		return false, err
	}
	if !expired {
		s.log.Info("Subscriber %d renewed before expiry, kept active", subscriberID)
	}
	return expired, nil
}

// Get статус подписки; неизвестный покупатель неактивен
func (s *SubscriptionService) Get(ctx context.Context, subscriberID int64) (domain.Subscriber, error) {
	return s.repo.Get(ctx, subscriberID)
}

// ListActive активные подписки для проверки истечения
func (s *SubscriptionService) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	return s.repo.ListActive(ctx)
}
