package api

import (
	"log/slog"
	"net/http"
	"repayment-engine/internal/api/handler"
	mw "repayment-engine/internal/api/middleware"
	"repayment-engine/internal/config"
	"repayment-engine/internal/domain/loan"
	"time"

	_ "repayment-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(scheduleService loan.ScheduleService, limiter *mw.RateLimiterMiddleware, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, limiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupAuthRoutes(router, cfg, logger)
	setupLoanRoutes(router, scheduleService, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	return router
}

func setupMiddleware(router *chi.Mux, limiter *mw.RateLimiterMiddleware, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(limiter.Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	if !cfg.Server.Auth.Enabled {
		return
	}
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

func setupLoanRoutes(router *chi.Mux, scheduleService loan.ScheduleService, cfg *config.Config, logger *slog.Logger) {
	loanHandler := handler.NewLoanHandler(scheduleService, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleService, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Post("/", loanHandler.CreateLoan)
		r.Get("/upcoming", loanHandler.GetUpcomingInstallments)
		r.Route("/{loanID}", func(r chi.Router) {
			r.Get("/", loanHandler.GetLoan)
			r.Get("/late-fees", loanHandler.GetLateFees)
			r.Route("/schedule", func(r chi.Router) {
				r.Post("/installments", scheduleHandler.AddInstallments)
				r.Post("/extend", scheduleHandler.ExtendTerm)
				r.Post("/regenerate", scheduleHandler.RegenerateSchedule)
				r.Route("/{installmentID}", func(r chi.Router) {
					r.Post("/pay", scheduleHandler.MarkAsPaid)
					r.Put("/due-date", scheduleHandler.UpdateDueDate)
					r.Put("/", scheduleHandler.UpdateInstallment)
					r.Delete("/", scheduleHandler.DeleteInstallment)
				})
			})
		})
	})
}
