package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ChargeCreator оформление Pix-платежа
type ChargeCreator interface {
	CreateCharge(ctx context.Context, subscriberID int64) (*domain.ChargeOffer, error)
}

// ChargeResponse предложение оплаты для внешнего клиента
type ChargeResponse struct {
	SubscriberID  int64  `json:"subscriber_id"`
	ExternalTxID  string `json:"external_tx_id,omitempty"`
	PaymentCode   string `json:"payment_code,omitempty"`
	QRCodePNG     string `json:"qr_code_png_base64,omitempty"`
	QRSynthesized bool   `json:"qr_synthesized"`
}

// ChargeHandler создание платежей через REST
type ChargeHandler struct {
	checkout ChargeCreator
	log      *logger.Logger
}

// NewChargeHandler создает обработчик платежей
func NewChargeHandler(checkout ChargeCreator, log *logger.Logger) *ChargeHandler {
	return &ChargeHandler{checkout: checkout, log: log}
}

// CreateCharge POST /api/v1/charges
func (h *ChargeHandler) CreateCharge(c *gin.Context) {
	var req domain.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid charge request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "subscriber_id must be a positive integer"})
		return
	}

	offer, err := h.checkout.CreateCharge(c.Request.Context(), req.SubscriberID)
	if err != nil {
		status, msg := chargeErrorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if !offer.Deliverable() {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Gateway response carried no payment code or QR image"})
		return
	}

	resp := ChargeResponse{
		SubscriberID:  offer.SubscriberID,
		ExternalTxID:  offer.ExternalTxID,
		PaymentCode:   offer.PaymentCode,
		QRSynthesized: offer.QRSynthesized,
	}
	if len(offer.QRImage) > 0 {
		resp.QRCodePNG = base64.StdEncoding.EncodeToString(offer.QRImage)
	}

	h.log.Info("Charge created for subscriber %d", offer.SubscriberID)
	c.JSON(http.StatusCreated, resp)
}

func chargeErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid charge request"
	case errors.Is(err, domain.ErrGatewayRejected):
		return http.StatusBadGateway, "Payment gateway rejected the charge"
	case errors.Is(err, domain.ErrExternalServiceUnavailable):
		return http.StatusServiceUnavailable, "Payment gateway unavailable"
	default:
		return http.StatusInternalServerError, "Failed to create charge"
	}
}
