package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mnhidayatgani/chatbot-sub000/api/controllers"
	"github.com/mnhidayatgani/chatbot-sub000/api/middleware"
	"github.com/mnhidayatgani/chatbot-sub000/internal/engine"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/internal/stock"
	"github.com/mnhidayatgani/chatbot-sub000/internal/webhook"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	pkgredis "github.com/mnhidayatgani/chatbot-sub000/pkg/redis"
)

// Params carry everything the router mounts.
type Params struct {
	Logger    *logger.Logger
	Config    *config.Config
	Engine    *engine.Engine
	Webhooks  *webhook.Service
	Ledger    *stock.Ledger
	Sessions  *session.Store
	Redis     *pkgredis.Client
	DB        *db.Client
	Registry  *prometheus.Registry
	StartedAt time.Time
}

// New assembles the HTTP surface: ingress for the transport gateway and
// the payment gateway, health and metrics, and the token-guarded admin
// endpoints.
func New(params Params) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(params.Logger))
	r.Use(middleware.Recoverer(params.Logger))
	r.Use(middleware.Logging(params.Logger))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/health/live", controllers.HealthLive(params.Config))
	r.Get("/health/ready", controllers.HealthReady(controllers.HealthParams{
		Config:    params.Config,
		Redis:     params.Redis,
		DB:        params.DB,
		Sessions:  params.Sessions,
		StartedAt: params.StartedAt,
	}))

	if params.Registry != nil {
		r.Method("GET", "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Post("/messages", controllers.InboundMessage(params.Logger, params.Engine))
	r.Post("/webhooks/payment", controllers.PaymentWebhook(params.Logger, params.Webhooks))

	r.Route("/api/admin/v1", func(admin chi.Router) {
		admin.Use(middleware.AdminAuth(params.Logger, params.Config.Admin.APIToken))
		admin.Get("/stock/{productID}", controllers.GetStock(params.Logger, params.Ledger))
		admin.Put("/stock/{productID}", controllers.SetStock(params.Logger, params.Ledger))
		admin.Get("/stock/{productID}/history", controllers.GetStockHistory(params.Logger, params.Ledger))
	})

	return r
}
