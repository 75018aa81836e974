// Package jobs фоновые задачи по расписанию.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/internal/notify"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// SubscriptionStore то, что нужно проверке истечения от хранилища подписок
type SubscriptionStore interface {
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
	Expire(ctx context.Context, subscriberID int64, asOf time.Time) (bool, error)
}

// SweepResult итог одного прохода; Renewed продлены между выборкой и снятием
type SweepResult struct {
	Checked int
	Expired int
	Renewed int
}

// ExpiryJob снимает истекшие подписки и предлагает продление
type ExpiryJob struct {
	store       SubscriptionStore
	notifier    notify.Notifier
	metrics     metrics.SubscriptionMetrics
	concurrency int
	now         func() time.Time
	running     atomic.Bool
	cron        *cron.Cron
	log         *logger.Logger
}

// NewExpiryJob создает задачу; concurrency ограничивает параллельную обработку подписчиков
func NewExpiryJob(store SubscriptionStore, notifier notify.Notifier, m metrics.SubscriptionMetrics, concurrency int, log *logger.Logger) *ExpiryJob {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &ExpiryJob{
		store:       store,
		notifier:    notifier,
		metrics:     m,
		concurrency: concurrency,
		now:         time.Now,
		log:         log.Named("expiry"),
	}
}

// Run один проход. Ошибки отдельных подписчиков собираются и не прерывают остальных.
func (j *ExpiryJob) Run(ctx context.Context) (SweepResult, error) {
	start := time.Now()

	subs, err := j.store.ListActive(ctx)
	if err != nil {
		j.metrics.ObserveSweep(time.Since(start).Seconds(), true)
		return SweepResult{}, fmt.Errorf("list active subscribers: %w", err)
	}

	now := j.now()
	result := SweepResult{Checked: len(subs)}

	var (
		mu     sync.Mutex
		errs   *multierror.Error
		failed bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for _, sub := range subs {
		if !sub.ExpiredAt(now) {
			continue
		}
		g.Go(func() error {
			expired, err := j.expire(gctx, sub.ID, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				errs = multierror.Append(errs, err)
				failed = true
			case expired:
				result.Expired++
			default:
				result.Renewed++
			}
			return nil
		})
	}
	_ = g.Wait()

	j.metrics.ObserveSweep(time.Since(start).Seconds(), failed)
	return result, errs.ErrorOrNil()
}

// expire деактивация, затем уведомление; без деактивации уведомление не шлется.
// Деактивация повторно сверяет срок с now, так что продление после выборки не теряется.
// При ошибке уведомления true: подписка уже снята.
func (j *ExpiryJob) expire(ctx context.Context, subscriberID int64, now time.Time) (bool, error) {
	expired, err := j.store.Expire(ctx, subscriberID, now)
	if err != nil {
		return false, fmt.Errorf("deactivate %d: %w", subscriberID, err)
	}
	if !expired {
		return false, nil
	}
	j.metrics.IncExpired()
	j.log.Info("Subscription of %d expired", subscriberID)

	if err := j.notifier.RenewalDue(ctx, subscriberID); err != nil {
		return true, fmt.Errorf("renewal prompt %d: %w", subscriberID, err)
	}
	return true, nil
}

// Tick запуск по расписанию: пропускается, если предыдущий проход еще идет
func (j *ExpiryJob) Tick(ctx context.Context) {
	if !j.running.CompareAndSwap(false, true) {
		j.log.Warn("Previous sweep still running, tick skipped")
		return
	}
	defer j.running.Store(false)

	res, err := j.Run(ctx)
	if err != nil {
		j.log.Error("Sweep finished with errors: %v", err)
	}
	if res.Expired > 0 || res.Renewed > 0 || err != nil {
		j.log.Info("Sweep checked=%d expired=%d renewed=%d", res.Checked, res.Expired, res.Renewed)
	}
}

// Start планирует проход каждые interval; ctx отменяет идущие проходы при остановке
func (j *ExpiryJob) Start(ctx context.Context, interval time.Duration) error {
	c := cron.New()
	if err := c.AddFunc("@every "+interval.String(), func() { j.Tick(ctx) }); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}
	c.Start()
	j.cron = c
	j.log.Info("Expiry sweep scheduled every %s", interval)
	return nil
}

// Stop останавливает планировщик; идущий проход завершится сам
func (j *ExpiryJob) Stop() {
	if j.cron != nil {
		j.cron.Stop()
	}
}
