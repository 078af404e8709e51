// Package app arma el proceso: store, notificaciones, servicios y router.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"medication-adherence/internal/adapters/events/natsbus"
	"medication-adherence/internal/adapters/notifier/local"
	"medication-adherence/internal/adapters/notifier/push"
	mem "medication-adherence/internal/adapters/storage/memory"
	pg "medication-adherence/internal/adapters/storage/postgres"
	"medication-adherence/internal/config"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/domain/reminders"
	"medication-adherence/internal/persistence"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/metrics"
	"medication-adherence/internal/ports/kvstore"
	"medication-adherence/internal/ports/notifier"
	"medication-adherence/internal/router"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type App struct {
	Medications *medications.Service
	Doses       *doselog.Service
	Adherence   *adherence.Service
	Handler     http.Handler

	cfg     *config.Config
	log     logger.Logger
	gateway *persistence.Gateway
	local   *local.Notifier
	db      *sql.DB
	nc      *nats.Conn
}

// New carga el estado persistido y deja todo listo para servir.
// Un colaborador de notificaciones que no da permiso no impide arrancar.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	store, db, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return newWithStore(ctx, cfg, log, store, db)
}

func newWithStore(ctx context.Context, cfg *config.Config, log logger.Logger, store kvstore.Store, db *sql.DB) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a := &App{cfg: cfg, log: log, db: db}

	n, webhook, err := a.buildNotifier()
	if err != nil {
		a.closeResources()
		return nil, err
	}

	if strings.TrimSpace(cfg.NATSURL) != "" {
		nc, err := natsbus.Connect(cfg.NATSURL)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("nats connect: %w", err)
		}
		a.nc = nc
	}
	a.subscribeFired(n, m)

	sched := reminders.NewScheduler(n, reminders.Options{
		Timeout: cfg.ScheduleTimeout,
		Logger:  log,
		Metrics: m,
	})
	sched.RequestPermission(ctx)

	a.gateway = persistence.NewGateway(store, persistence.Options{Logger: log, Metrics: m})
	st := a.gateway.LoadState(ctx)

	a.Medications = medications.NewService(sched, a.gateway, medications.Options{Logger: log, Metrics: m})
	a.Medications.Restore(st.Medications)
	if a.local != nil {
		// El notificador local pierde sus recordatorios al reiniciar.
		if err := a.Medications.Reschedule(ctx); err != nil {
			log.Warn("some reminders could not be rescheduled", map[string]any{"error": err})
		}
	}

	a.Doses = doselog.NewService(a.gateway, doselog.Options{Logger: log, Metrics: m})
	a.Doses.Restore(st.Logs)

	a.Adherence = adherence.NewService(a.Medications, a.Doses)

	a.Handler = router.NewRouter(router.Options{
		Medications:  a.Medications,
		Doses:        a.Doses,
		Adherence:    a.Adherence,
		Logger:       log,
		Gatherer:     reg,
		FiredWebhook: webhook,
	})
	return a, nil
}

// Run mantiene vivo el loop del notificador local (si aplica) hasta que ctx termine.
func (a *App) Run(ctx context.Context) {
	if a.local == nil {
		return
	}
	a.local.Run(ctx, a.cfg.LocalTick)
}

// Close baja las escrituras pendientes y libera conexiones.
func (a *App) Close() {
	if a.gateway != nil {
		a.gateway.Close()
	}
	a.closeResources()
}

func (a *App) closeResources() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.log.Warn("nats drain failed", map[string]any{"error": err})
		}
		a.nc = nil
	}
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
	}
}

func (a *App) buildNotifier() (notifier.Notifier, http.Handler, error) {
	switch a.cfg.Notifier {
	case config.NotifierPush:
		c, err := push.NewClient(push.Config{
			BaseURL: a.cfg.PushGatewayURL,
			APIKey:  a.cfg.PushGatewayAPIKey,
			Timeout: a.cfg.ScheduleTimeout,
		}, a.log)
		if err != nil {
			return nil, nil, fmt.Errorf("push notifier: %w", err)
		}
		return c, c.WebhookHandler(), nil
	default:
		a.local = local.New(local.Options{Logger: a.log})
		return a.local, nil, nil
	}
}

func (a *App) subscribeFired(n notifier.Notifier, m *metrics.Metrics) {
	var pub *natsbus.Publisher
	if a.nc != nil {
		pub = natsbus.NewPublisher(a.nc, a.cfg.NATSSubject, a.log)
	}

	n.OnFired(func(f notifier.Fired) {
		m.ReminderFired()
		if pub != nil {
			pub.Publish(f)
		}
	})
}

// OpenStore elige el backend de persistencia. Con postgres aplica migraciones
// y devuelve el *sql.DB para que el caller lo cierre.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (kvstore.Store, *sql.DB, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("using postgres store", nil)
		return pg.NewKVStore(db), db, nil
	case config.StoreMemory, "":
		log.Warn("using in-memory store, state is lost on exit", nil)
		return mem.NewKVStore(), nil, nil
	default:
		return nil, nil, errors.New("unknown store backend: " + cfg.StoreBackend)
	}
}
