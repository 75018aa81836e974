package repository

import (
	"context"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
)

// CachedSubscriberRepository читает подписчиков через кэш, запись идет в хранилище.
// Ошибки кэша только логируются: источник истины это хранилище.
type CachedSubscriberRepository struct {
	repo  SubscriberRepository
	cache *RedisCache
	log   *logger.Logger
}

// NewCachedSubscriberRepository оборачивает repo кэшем
func NewCachedSubscriberRepository(repo SubscriberRepository, cache *RedisCache, log *logger.Logger) *CachedSubscriberRepository {
	return &CachedSubscriberRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Activate пишет в хранилище и сбрасывает кэш
func (r *CachedSubscriberRepository) Activate(ctx context.Context, subscriberID int64, expiresAt time.Time) error {
	if err := r.repo.Activate(ctx, subscriberID, expiresAt); err != nil {
		return err
	}
	r.invalidate(ctx, subscriberID)
	return nil
}

// Deactivate пишет в хранилище и сбрасывает кэш
func (r *CachedSubscriberRepository) Deactivate(ctx context.Context, subscriberID int64) error {
	if err := r.repo.Deactivate(ctx, subscriberID); err != nil {
		return err
	}
	r.invalidate(ctx, subscriberID)
	return nil
}

// DeactivateExpired сбрасывает кэш, только если строка изменилась
func (r *CachedSubscriberRepository) DeactivateExpired(ctx context.Context, subscriberID int64, asOf time.Time) (bool, error) {
	expired, err := r.repo.DeactivateExpired(ctx, subscriberID, asOf)
	if err != nil || !expired {
		return expired, err
	}
	r.invalidate(ctx, subscriberID)
	return true, nil
}

// Get сначала из кэша, потом из хранилища. Версия читается до хранилища:
// если запись успели изменить, устаревшее значение в кэш не попадет.
func (r *CachedSubscriberRepository) Get(ctx context.Context, subscriberID int64) (domain.Subscriber, error) {
	cached, err := r.cache.GetSubscriber(ctx, subscriberID)
	if err != nil {
		r.log.Warn("Error getting subscriber %d from cache: %v", subscriberID, err)
	}
	if cached != nil {
		return *cached, nil
	}

	version, verErr := r.cache.Version(ctx, subscriberID)
	if verErr != nil {
		r.log.Warn("Error getting subscriber %d version: %v", subscriberID, verErr)
	}

	sub, err := r.repo.Get(ctx, subscriberID)
	if err != nil {
		return domain.Subscriber{}, err
	}
	if verErr != nil {
		return sub, nil
	}

	stored, err := r.cache.SetSubscriber(ctx, sub, version)
	if err != nil {
		r.log.Warn("Failed to cache subscriber %d: %v", subscriberID, err)
	} else if !stored {
		r.log.Debug("Subscriber %d changed during read, not cached", subscriberID)
	}
	return sub, nil
}

// ListActive всегда читает хранилище
func (r *CachedSubscriberRepository) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	return r.repo.ListActive(ctx)
}

func (r *CachedSubscriberRepository) invalidate(ctx context.Context, subscriberID int64) {
	if err := r.cache.DeleteSubscriber(ctx, subscriberID); err != nil {
		r.log.Warn("Failed to invalidate subscriber %d in cache: %v", subscriberID, err)
	}
}
