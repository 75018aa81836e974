package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	activateSubscriberQuery = `
		INSERT INTO subscribers (subscriber_id, status, expires_at, updated_at)
		VALUES ($1, 'active', $2, NOW())
		ON CONFLICT (subscriber_id) DO UPDATE
		SET status = EXCLUDED.status, expires_at = EXCLUDED.expires_at, updated_at = NOW()`

	deactivateSubscriberQuery = `
		INSERT INTO subscribers (subscriber_id, status, expires_at, updated_at)
		VALUES ($1, 'inactive', NULL, NOW())
		ON CONFLICT (subscriber_id) DO UPDATE
		SET status = EXCLUDED.status, expires_at = NULL, updated_at = NOW()`

	deactivateExpiredSubscriberQuery = `
		UPDATE subscribers
		SET status = 'inactive', expires_at = NULL, updated_at = NOW()
		WHERE subscriber_id = $1 AND status = 'active' AND expires_at < $2`

	getSubscriberQuery = `
		SELECT subscriber_id, status, expires_at, updated_at
		FROM subscribers
		WHERE subscriber_id = $1`

	listActiveSubscribersQuery = `
		SELECT subscriber_id, status, expires_at, updated_at
		FROM subscribers
		WHERE status = 'active' AND expires_at IS NOT NULL
		ORDER BY subscriber_id`
)

// SubscriberRepository подписчики в PostgreSQL; upsert сериализует запись в строку
type SubscriberRepository struct {
	db  DB
	log *logger.Logger
}

// NewSubscriberRepository создает репозиторий подписчиков
func NewSubscriberRepository(db DB, log *logger.Logger) *SubscriberRepository {
	return &SubscriberRepository{db: db, log: log}
}

// Activate делает подписку активной до expiresAt
func (r *SubscriberRepository) Activate(ctx context.Context, subscriberID int64, expiresAt time.Time) error {
	if _, err := r.db.Exec(ctx, activateSubscriberQuery, subscriberID, expiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to activate subscriber %d: %w", subscriberID, err)
	}
	r.log.Debug("Subscriber %d active until %s", subscriberID, expiresAt.UTC().Format(time.RFC3339))
	return nil
}

// Deactivate делает подписку неактивной
func (r *SubscriberRepository) Deactivate(ctx context.Context, subscriberID int64) error {
	if _, err := r.db.Exec(ctx, deactivateSubscriberQuery, subscriberID); err != nil {
		return fmt.Errorf("failed to deactivate subscriber %d: %w", subscriberID, err)
	}
	r.log.Debug("Subscriber %d deactivated", subscriberID)
	return nil
}

// DeactivateExpired снимает подписку одним UPDATE с условием на срок;
// продление, записанное после выборки, строку не отдаст
func (r *SubscriberRepository) DeactivateExpired(ctx context.Context, subscriberID int64, asOf time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, deactivateExpiredSubscriberQuery, subscriberID, asOf.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to expire subscriber %d: %w", subscriberID, err)
	}
	if tag.RowsAffected() == 0 {
		r.log.Debug("Subscriber %d no longer expired, skipped", subscriberID)
		return false, nil
	}
	r.log.Debug("Subscriber %d expired", subscriberID)
	return true, nil
}

// Get возвращает подписчика или inactive, если строки нет
func (r *SubscriberRepository) Get(ctx context.Context, subscriberID int64) (domain.Subscriber, error) {
	sub, err := scanSubscriber(r.db.QueryRow(ctx, getSubscriberQuery, subscriberID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InactiveSubscriber(subscriberID), nil
		}
		return domain.Subscriber{}, fmt.Errorf("failed to get subscriber %d: %w", subscriberID, err)
	}
	return sub, nil
}

// ListActive активные подписчики
func (r *SubscriberRepository) ListActive(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := r.db.Query(ctx, listActiveSubscribersQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscribers: %w", err)
	}
	return subs, nil
}

func scanSubscriber(row pgx.Row) (domain.Subscriber, error) {
	var (
		sub       domain.Subscriber
		status    string
		expiresAt *time.Time
	)
	if err := row.Scan(&sub.ID, &status, &expiresAt, &sub.UpdatedAt); err != nil {
		return domain.Subscriber{}, err
	}
	sub.Status = domain.SubscriptionStatus(status)
	sub.ExpiresAt = expiresAt
	return sub, nil
}
