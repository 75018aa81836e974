package domain

import (
	"time"
)

// SubscriptionStatus статус подписки
type SubscriptionStatus string

const (
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusActive   SubscriptionStatus = "active"
)

// Subscriber одна строка на покупателя (Telegram user id).
// Active всегда имеет ExpiresAt; у inactive срок либо пуст, либо в прошлом.
type Subscriber struct {
	ID        int64              `json:"subscriber_id"`
	Status    SubscriptionStatus `json:"status"`
	ExpiresAt *time.Time         `json:"expires_at,omitempty"`
	UpdatedAt time.Time          `json:"updated_at,omitempty"`
}

// InactiveSubscriber возвращает значение по умолчанию для неизвестного покупателя
func InactiveSubscriber(id int64) Subscriber {
	return Subscriber{ID: id, Status: SubscriptionStatusInactive}
}

// IsActive true, если подписка активна и срок задан
func (s Subscriber) IsActive() bool {
	return s.Status == SubscriptionStatusActive && s.ExpiresAt != nil
}

// ExpiredAt true, если активная подписка истекла к моменту now
func (s Subscriber) ExpiredAt(now time.Time) bool {
	return s.IsActive() && s.ExpiresAt.Before(now)
}
