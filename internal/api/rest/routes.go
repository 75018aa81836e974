package rest

import (
	"github.com/Dhoini/pix-subscription-service/config"
	"github.com/Dhoini/pix-subscription-service/internal/api/rest/handlers"
	"github.com/Dhoini/pix-subscription-service/internal/api/rest/middleware"
	"github.com/Dhoini/pix-subscription-service/internal/metrics"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers обработчики, собранные в cmd/server
type Handlers struct {
	Webhook       *handlers.WebhookHandler
	Charges       *handlers.ChargeHandler
	Subscriptions *handlers.SubscriptionHandler
}

// SetupRouter настраивает маршрутизатор Gin с маршрутами и middleware
func SetupRouter(cfg *config.Config, h Handlers, registry *prometheus.Registry, log *logger.Logger) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.LoggerMiddleware(log.Named("http")))
	r.Use(metrics.NewHTTPMetrics(registry).Middleware())
	r.Use(gin.Recovery())

	r.GET("/health", handlers.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// Постбэк шлюза: без API-ключа, у шлюза его нет
	r.POST(cfg.Webhook.Path, h.Webhook.HandlePostback)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireAPIKey(cfg.Server.APIKey))
	{
		v1.POST("/charges", h.Charges.CreateCharge)
		v1.GET("/subscribers/:id", h.Subscriptions.GetSubscriber)
	}

	return r
}
