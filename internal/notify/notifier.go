// Package notify доставка уведомлений покупателю и публикация событий подписки.
package notify

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Notifier получатель событий активации и истечения подписки
type Notifier interface {
	// AccessGranted оплата подтверждена, подписка активна до expiresAt
	AccessGranted(ctx context.Context, subscriberID int64, expiresAt time.Time) error
	// RenewalDue подписка истекла, покупателю предлагается продлить
	RenewalDue(ctx context.Context, subscriberID int64) error
}

// Multi рассылает событие всем получателям; ошибка одного не останавливает остальных
type Multi []Notifier

// AccessGranted вызывает всех получателей и собирает ошибки
func (m Multi) AccessGranted(ctx context.Context, subscriberID int64, expiresAt time.Time) error {
	var result *multierror.Error
	for _, n := range m {
		if err := n.AccessGranted(ctx, subscriberID, expiresAt); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// RenewalDue вызывает всех получателей и собирает ошибки
func (m Multi) RenewalDue(ctx context.Context, subscriberID int64) error {
	var result *multierror.Error
	for _, n := range m {
		if err := n.RenewalDue(ctx, subscriberID); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
