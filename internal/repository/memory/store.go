// Package memory хранилище в памяти процесса: для локального запуска и тестов.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
)

// SubscriberRepository подписчики в памяти
type SubscriberRepository struct {
	mu          sync.RWMutex
	subscribers map[int64]domain.Subscriber
	now         func() time.Time
}

// NewSubscriberRepository создает пустое хранилище подписчиков
func NewSubscriberRepository() *SubscriberRepository {
	return &SubscriberRepository{
		subscribers: make(map[int64]domain.Subscriber),
		now:         time.Now,
	}
}

// Activate upsert: строка становится активной с новым сроком
func (r *SubscriberRepository) Activate(_ context.Context, subscriberID int64, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp := expiresAt
	r.subscribers[subscriberID] = domain.Subscriber{
		ID:        subscriberID,
		Status:    domain.SubscriptionStatusActive,
		ExpiresAt: &exp,
		UpdatedAt: r.now(),
	}
	return nil
}

// Deactivate upsert: строка становится неактивной без срока
func (r *SubscriberRepository) Deactivate(_ context.Context, subscriberID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribers[subscriberID] = domain.Subscriber{
		ID:        subscriberID,
		Status:    domain.SubscriptionStatusInactive,
		UpdatedAt: r.now(),
	}
	return nil
}

// DeactivateExpired снимает подписку, если срок к asOf уже прошел
func (r *SubscriberRepository) DeactivateExpired(_ context.Context, subscriberID int64, asOf time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok || !sub.ExpiredAt(asOf) {
		return false, nil
	}
	r.subscribers[subscriberID] = domain.Subscriber{
		ID:        subscriberID,
		Status:    domain.SubscriptionStatusInactive,
		UpdatedAt: r.now(),
	}
	return true, nil
}

// Get возвращает копию строки или inactive для неизвестного покупателя
func (r *SubscriberRepository) Get(_ context.Context, subscriberID int64) (domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.subscribers[subscriberID]
	if !ok {
		return domain.InactiveSubscriber(subscriberID), nil
	}
	return copySubscriber(sub), nil
}

// ListActive активные подписчики по возрастанию ID
func (r *SubscriberRepository) ListActive(_ context.Context) ([]domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Subscriber
	for _, sub := range r.subscribers {
		if sub.IsActive() {
			out = append(out, copySubscriber(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func copySubscriber(s domain.Subscriber) domain.Subscriber {
	if s.ExpiresAt != nil {
		exp := *s.ExpiresAt
		s.ExpiresAt = &exp
	}
	return s
}

// ChargeRepository журнал платежей в памяти
type ChargeRepository struct {
	mu      sync.RWMutex
	records []domain.ChargeRecord
	nextID  int64
}

// NewChargeRepository создает пустой журнал
func NewChargeRepository() *ChargeRepository {
	return &ChargeRepository{nextID: 1}
}

// Record добавляет запись с очередным ID
func (r *ChargeRepository) Record(_ context.Context, rec domain.ChargeRecord) (domain.ChargeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec.ID = r.nextID
	r.nextID++
	if rec.Status == "" {
		rec.Status = domain.ChargeStatusPending
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	if rec.ExternalTxID != nil {
		id := *rec.ExternalTxID
		rec.ExternalTxID = &id
	}
	r.records = append(r.records, rec)
	return rec, nil
}

// latest индекс самой свежей записи с этим id, -1 если нет; вызывать под мьютексом
func (r *ChargeRepository) latest(externalTxID string) int {
	for i := len(r.records) - 1; i >= 0; i-- {
		if id := r.records[i].ExternalTxID; id != nil && *id == externalTxID {
			return i
		}
	}
	return -1
}

// UpdateStatus меняет статус самой свежей записи
func (r *ChargeRepository) UpdateStatus(_ context.Context, externalTxID, status string) (bool, error) {
	if externalTxID == "" {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.latest(externalTxID)
	if i < 0 {
		return false, nil
	}
	r.records[i].Status = status
	return true, nil
}

// FindSubscriberByExternalTxID покупатель самой свежей записи
func (r *ChargeRepository) FindSubscriberByExternalTxID(_ context.Context, externalTxID string) (int64, bool, error) {
	if externalTxID == "" {
		return 0, false, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.latest(externalTxID)
	if i < 0 {
		return 0, false, nil
	}
	return r.records[i].SubscriberID, true, nil
}

// ListBySubscriber последние записи покупателя, новые первыми
func (r *ChargeRepository) ListBySubscriber(_ context.Context, subscriberID int64, limit int) ([]domain.ChargeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.ChargeRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if r.records[i].SubscriberID != subscriberID {
			continue
		}
		out = append(out, r.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// minPruneSize после скольких меток начинается очистка истекших
const minPruneSize = 1024

// NotificationMarker in-process вариант маркера уведомлений
type NotificationMarker struct {
	mu      sync.Mutex
	marked  map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
	pruneAt int
}

// NewNotificationMarker ttl <= 0 означает бессрочные метки
func NewNotificationMarker(ttl time.Duration) *NotificationMarker {
	return &NotificationMarker{
		marked:  make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
		pruneAt: minPruneSize,
	}
}

// MarkOnce true, если ключ еще не был помечен или метка истекла
func (m *NotificationMarker) MarkOnce(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if at, ok := m.marked[key]; ok && !m.expired(at, now) {
		return false, nil
	}
	m.marked[key] = now
	if len(m.marked) >= m.pruneAt {
		m.prune(now)
	}
	return true, nil
}

// Release снимает метку
func (m *NotificationMarker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.marked, key)
	return nil
}

func (m *NotificationMarker) expired(at, now time.Time) bool {
	return m.ttl > 0 && now.Sub(at) >= m.ttl
}

// prune удаляет истекшие метки. Следующая очистка откладывается до удвоения размера,
// чтобы при большом числе живых меток не обходить карту на каждом вызове.
func (m *NotificationMarker) prune(now time.Time) {
	for key, at := range m.marked {
		if m.expired(at, now) {
			delete(m.marked, key)
		}
	}
	m.pruneAt = max(minPruneSize, 2*len(m.marked))
}
