package domain

import (
	"time"
)

// ChargeStatusPending статус записи сразу после создания платежа
const ChargeStatusPending = "pending"

// ChargeStatusUnknown статус, если вебхук пришел без статуса
const ChargeStatusUnknown = "unknown"

// ChargeRecord одна попытка создания Pix-платежа.
// Записи только добавляются; статус меняет сверка по вебхуку.
type ChargeRecord struct {
	ID           int64     `json:"id"`
	SubscriberID int64     `json:"subscriber_id"`
	ExternalTxID *string   `json:"external_tx_id,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	RawResponse  string    `json:"-"`
}

// ChargeOffer то, что получает покупатель: код "copia e cola" и/или PNG с QR
type ChargeOffer struct {
	SubscriberID int64
	ExternalTxID string
	PaymentCode  string
	QRImage      []byte
	// QRSynthesized true, если картинка построена из кода, а не пришла от шлюза
	QRSynthesized bool
}

// HasPaymentCode есть ли код для копирования
func (o *ChargeOffer) HasPaymentCode() bool {
	return o.PaymentCode != ""
}

// Deliverable есть ли у покупателя хоть какой-то способ оплатить
func (o *ChargeOffer) Deliverable() bool {
	return o.PaymentCode != "" || len(o.QRImage) > 0
}

// ChargeRequest запрос на создание платежа через REST API
type ChargeRequest struct {
	SubscriberID int64 `json:"subscriber_id" binding:"required,gt=0"`
}
