package repository

import (
	"context"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
)

// SubscriberRepository хранилище подписчиков: одна строка на покупателя.
// Запись в одну строку сериализуется хранилищем (last writer wins).
type SubscriberRepository interface {
	// Activate делает подписку активной со сроком expiresAt, заменяя прежний срок.
	Activate(ctx context.Context, subscriberID int64, expiresAt time.Time) error

	// Deactivate делает подписку неактивной и очищает срок.
	Deactivate(ctx context.Context, subscriberID int64) error

	// DeactivateExpired снимает подписку, только если она активна и истекла к asOf.
	// false: строку успели продлить или уже сняли.
	DeactivateExpired(ctx context.Context, subscriberID int64, asOf time.Time) (bool, error)

	// Get возвращает подписчика; неизвестный покупатель это (inactive, nil), а не ошибка.
	Get(ctx context.Context, subscriberID int64) (domain.Subscriber, error)

	// ListActive возвращает активных подписчиков с заданным сроком.
	ListActive(ctx context.Context) ([]domain.Subscriber, error)
}

// ChargeRepository журнал попыток оплаты, только добавление записей.
type ChargeRepository interface {
	// Record добавляет запись и возвращает ее с присвоенным ID.
	Record(ctx context.Context, rec domain.ChargeRecord) (domain.ChargeRecord, error)

	// UpdateStatus меняет статус самой свежей записи с этим id; false, если записи нет.
	UpdateStatus(ctx context.Context, externalTxID, status string) (bool, error)

	// FindSubscriberByExternalTxID покупатель самой свежей записи с этим id.
	FindSubscriberByExternalTxID(ctx context.Context, externalTxID string) (int64, bool, error)

	// ListBySubscriber последние записи покупателя, новые первыми.
	ListBySubscriber(ctx context.Context, subscriberID int64, limit int) ([]domain.ChargeRecord, error)
}

// NotificationMarker помечает уже отправленные уведомления, чтобы повторный постбэк
// не слал покупателю второе сообщение. Активацию он не блокирует.
type NotificationMarker interface {
	// MarkOnce возвращает true, если ключ помечен впервые.
	MarkOnce(ctx context.Context, key string) (bool, error)

	// Release снимает метку, если уведомление так и не было доставлено.
	Release(ctx context.Context, key string) error
}
