package handlers

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/internal/extractor"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	maxWebhookBody     = 1 << 20
	webhookTimeout     = 30 * time.Second
	webhookTokenHeader = "X-Webhook-Token"
	webhookTokenQuery  = "token"
)

// PostbackHandler сверка постбэка с журналом и подписками
type PostbackHandler interface {
	HandleEvent(ctx context.Context, payload map[string]any) domain.ReconcileOutcome
}

// WebhookHandler принимает постбэки Invictus Pay.
// Шлюзу всегда отвечаем 200 {"ok": true}: повторная доставка ничего не исправит.
type WebhookHandler struct {
	reconciler PostbackHandler
	secret     string
	metrics    metrics.SubscriptionMetrics
	log        *logger.Logger
}

// NewWebhookHandler создает обработчик; пустой secret отключает проверку токена
func NewWebhookHandler(reconciler PostbackHandler, secret string, m metrics.SubscriptionMetrics, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     secret,
		metrics:    m,
		log:        log.Named("postback"),
	}
}

// HandlePostback обрабатывает POST на путь постбэка
func (h *WebhookHandler) HandlePostback(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{"ok": true})

	if !h.authorized(c) {
		h.log.Warn("Postback from %s rejected: bad token", c.ClientIP())
		h.metrics.IncWebhook(domain.OutcomeUnauthorized)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.log.Error("Failed to read postback body: %v", err)
		h.metrics.IncWebhook(domain.OutcomeIgnored)
		return
	}

	parsed, err := extractor.Decode(body)
	if err != nil {
		h.log.Warn("Postback body is not JSON: %v", err)
		h.metrics.IncWebhook(domain.OutcomeIgnored)
		return
	}
	payload, ok := extractor.Object(parsed)
	if !ok {
		h.log.Warn("Postback body is not a JSON object")
		h.metrics.IncWebhook(domain.OutcomeIgnored)
		return
	}

	// Обработка не должна обрываться, если шлюз закрыл соединение раньше времени
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), webhookTimeout)
	defer cancel()

	outcome := h.reconciler.HandleEvent(ctx, payload)
	h.log.Debug("Postback outcome: %s", outcome)
}

func (h *WebhookHandler) authorized(c *gin.Context) bool {
	if h.secret == "" {
		return true
	}
	token := c.GetHeader(webhookTokenHeader)
	if token == "" {
		token = c.Query(webhookTokenQuery)
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) == 1
}
