package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const defaultListLimit = 20

const (
	insertChargeQuery = `
		INSERT INTO charges (subscriber_id, external_tx_id, status, raw_response)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	// Несколько строк с одним id возможны; трогаем только самую свежую
	updateChargeStatusQuery = `
		UPDATE charges SET status = $2
		WHERE id = (
			SELECT id FROM charges
			WHERE external_tx_id = $1
			ORDER BY id DESC
			LIMIT 1
		)`

	findSubscriberByTxQuery = `
		SELECT subscriber_id FROM charges
		WHERE external_tx_id = $1
		ORDER BY id DESC
		LIMIT 1`

	listChargesBySubscriberQuery = `
		SELECT id, subscriber_id, external_tx_id, status, created_at, COALESCE(raw_response, '')
		FROM charges
		WHERE subscriber_id = $1
		ORDER BY id DESC
		LIMIT $2`
)

// ChargeRepository журнал платежей в PostgreSQL
type ChargeRepository struct {
	db  DB
	log *logger.Logger
}

// NewChargeRepository создает репозиторий журнала
func NewChargeRepository(db DB, log *logger.Logger) *ChargeRepository {
	return &ChargeRepository{db: db, log: log}
}

// Record добавляет запись; тело ответа шлюза хранится как есть
func (r *ChargeRepository) Record(ctx context.Context, rec domain.ChargeRecord) (domain.ChargeRecord, error) {
	if rec.Status == "" {
		rec.Status = domain.ChargeStatusPending
	}

	err := r.db.QueryRow(ctx, insertChargeQuery,
		rec.SubscriberID, rec.ExternalTxID, rec.Status, rec.RawResponse,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return domain.ChargeRecord{}, fmt.Errorf("failed to record charge for subscriber %d: %w", rec.SubscriberID, err)
	}

	r.log.Debug("Charge %d recorded for subscriber %d", rec.ID, rec.SubscriberID)
	return rec, nil
}

// UpdateStatus меняет статус самой свежей записи с этим id
func (r *ChargeRepository) UpdateStatus(ctx context.Context, externalTxID, status string) (bool, error) {
	if externalTxID == "" {
		return false, nil
	}
	tag, err := r.db.Exec(ctx, updateChargeStatusQuery, externalTxID, status)
	if err != nil {
		return false, fmt.Errorf("failed to update charge %s: %w", externalTxID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindSubscriberByExternalTxID покупатель самой свежей записи с этим id
func (r *ChargeRepository) FindSubscriberByExternalTxID(ctx context.Context, externalTxID string) (int64, bool, error) {
	if externalTxID == "" {
		return 0, false, nil
	}
	var subscriberID int64
	err := r.db.QueryRow(ctx, findSubscriberByTxQuery, externalTxID).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to find charge %s: %w", externalTxID, err)
	}
	return subscriberID, true, nil
}

// ListBySubscriber последние записи покупателя
func (r *ChargeRepository) ListBySubscriber(ctx context.Context, subscriberID int64, limit int) ([]domain.ChargeRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.Query(ctx, listChargesBySubscriberQuery, subscriberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	var recs []domain.ChargeRecord
	for rows.Next() {
		var rec domain.ChargeRecord
		if err := rows.Scan(&rec.ID, &rec.SubscriberID, &rec.ExternalTxID, &rec.Status, &rec.CreatedAt, &rec.RawResponse); err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating charges: %w", err)
	}
	return recs, nil
}
