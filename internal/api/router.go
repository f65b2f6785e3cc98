package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/irocky-stack/rjbtranz/internal/api/handler"
	"github.com/irocky-stack/rjbtranz/internal/api/middleware"
	"github.com/irocky-stack/rjbtranz/internal/api/spec"
	"github.com/irocky-stack/rjbtranz/internal/config"
	"github.com/irocky-stack/rjbtranz/internal/idempotency"
	"github.com/irocky-stack/rjbtranz/internal/lifecycle"
	"github.com/irocky-stack/rjbtranz/internal/rates"
	"github.com/irocky-stack/rjbtranz/internal/store"
	"github.com/irocky-stack/rjbtranz/internal/wizard"
)

// Router assembles the HTTP surface from its collaborators.
type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *pgxpool.Pool
	redis     redis.Cmdable
	idemStore *idempotency.Store

	store     store.TransactionStore
	table     *rates.Table
	resolver  *rates.Resolver
	lifecycle *lifecycle.Service
	sessions  *wizard.Manager
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *pgxpool.Pool,
	redisClient redis.Cmdable,
	idemStore *idempotency.Store,
	txStore store.TransactionStore,
	table *rates.Table,
	resolver *rates.Resolver,
	lc *lifecycle.Service,
	sessions *wizard.Manager,
) *Router {
	return &Router{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		idemStore: idemStore,
		store:     txStore,
		table:     table,
		resolver:  resolver,
		lifecycle: lc,
		sessions:  sessions,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	ratesHandler := handler.NewRatesHandler(api.table, api.resolver)
	txHandler := handler.NewTransactionHandler(api.store, api.lifecycle, api.cfg.BrandPrefix)
	wizardHandler := handler.NewWizardHandler(api.sessions)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Get("/health/live", healthHandler.Live)
		r.Get("/health/ready", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Rates
		r.Get("/v1/rates", ratesHandler.List)
		r.Get("/v1/rates/resolve", ratesHandler.Resolve)
		r.Get("/v1/countries", ratesHandler.Countries)

		// Transactions
		r.Get("/v1/transactions", txHandler.List)
		r.Get("/v1/transactions/summary", txHandler.Summary)
		r.Get("/v1/transactions/{id}", txHandler.Get)
		r.Patch("/v1/transactions/{id}/status", txHandler.UpdateStatus)
		r.Patch("/v1/transactions/{id}/rate", txHandler.SetRate)
		r.Get("/v1/transactions/{id}/receipt", txHandler.Receipt)
		r.Post("/v1/transactions/{id}/receipt", txHandler.PrintReceipt)
		r.Post("/v1/transactions/complete-pending", txHandler.CompleteAllPending)

		// Wizard sessions
		idem := middleware.IdempotencyMiddleware(api.idemStore, api.logger)
		r.Post("/v1/wizard", wizardHandler.Open)
		r.Route("/v1/wizard/{session}", func(r chi.Router) {
			r.Get("/", wizardHandler.Snapshot)
			r.Delete("/", wizardHandler.Close)
			r.Post("/send", wizardHandler.StartSend)
			r.Post("/receive", wizardHandler.StartReceive)
			r.Get("/pending", wizardHandler.PendingOptions)
			r.Post("/pending", wizardHandler.SelectPending)
			r.Put("/form", wizardHandler.SetForm)
			r.With(idem).Post("/save", wizardHandler.SaveOnly)
			r.With(idem).Post("/save-continue", wizardHandler.SaveAndContinue)
			r.With(idem).Post("/create", wizardHandler.CreateTransaction)
			r.Post("/receiver", wizardHandler.SubmitReceiver)
			r.With(idem).Post("/confirm", wizardHandler.ConfirmPreview)
			r.Post("/back", wizardHandler.Back)
			r.Post("/cancel", wizardHandler.Cancel)
		})
	})

	return r
}
