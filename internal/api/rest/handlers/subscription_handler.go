package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

const recentChargesLimit = 10

// SubscriptionReader чтение статуса подписки
type SubscriptionReader interface {
	Get(ctx context.Context, subscriberID int64) (domain.Subscriber, error)
}

// ChargeLister последние платежи покупателя
type ChargeLister interface {
	ListBySubscriber(ctx context.Context, subscriberID int64, limit int) ([]domain.ChargeRecord, error)
}

// SubscriptionResponse статус подписки и последние попытки оплаты
type SubscriptionResponse struct {
	Subscriber domain.Subscriber     `json:"subscriber"`
	Charges    []domain.ChargeRecord `json:"charges"`
}

// SubscriptionHandler статус подписчиков
type SubscriptionHandler struct {
	subscriptions SubscriptionReader
	charges       ChargeLister
	log           *logger.Logger
}

// NewSubscriptionHandler создает обработчик статуса
func NewSubscriptionHandler(subscriptions SubscriptionReader, charges ChargeLister, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions, charges: charges, log: log}
}

// GetSubscriber GET /api/v1/subscribers/:id
func (h *SubscriptionHandler) GetSubscriber(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subscriber ID"})
		return
	}

	sub, err := h.subscriptions.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get subscriber %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get subscriber"})
		return
	}

	charges, err := h.charges.ListBySubscriber(c.Request.Context(), id, recentChargesLimit)
	if err != nil {
		h.log.Error("Failed to list charges for %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get charges"})
		return
	}
	if charges == nil {
		charges = []domain.ChargeRecord{}
	}

	c.JSON(http.StatusOK, SubscriptionResponse{Subscriber: sub, Charges: charges})
}
