package router

import (
	"net/http"

	_ "medication-adherence/docs"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	Medications *medications.Service
	Doses       *doselog.Service
	Adherence   *adherence.Service

	// Opcionales
	Logger       logger.Logger
	Gatherer     prometheus.Gatherer // nil => sin /metrics
	FiredWebhook http.Handler        // solo con el gateway push
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLog(opts.Logger))
	r.Use(middleware.Recover(opts.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	if opts.FiredWebhook != nil {
		r.Method(http.MethodPost, "/notifier/fired", opts.FiredWebhook)
	}

	// Rutas por módulo
	medications.RegisterRoutes(r, opts.Medications)
	doselog.RegisterRoutes(r, opts.Doses, opts.Medications)
	adherence.RegisterRoutes(r, opts.Adherence)

	return r
}
