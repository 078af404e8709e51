package reminders

import (
	"context"
	"fmt"
	"time"

	"medication-adherence/internal/platform/daytime"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/metrics"
	"medication-adherence/internal/ports/notifier"
)

const (
	DefaultTimeout = 10 * time.Second

	bodyText = "Tap to log your dose."
)

// SchedulingError envuelve cualquier falla del colaborador al programar.
// No se reintenta: el Registry decide si aborta el alta completa.
type SchedulingError struct {
	Time string
	Err  error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("schedule reminder at %s: %v", e.Time, e.Err)
}

func (e *SchedulingError) Unwrap() error { return e.Err }

// Scheduler traduce "recordar todos los días a HH:MM" a pedidos al Notifier.
type Scheduler struct {
	n       notifier.Notifier
	log     logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

type Options struct {
	// Timeout por llamada al colaborador. <=0 usa DefaultTimeout.
	Timeout time.Duration
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewScheduler(n notifier.Notifier, opts Options) *Scheduler {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		n:       n,
		log:     log.With(map[string]any{"component": "reminders"}),
		metrics: opts.Metrics,
		timeout: timeout,
	}
}

// ScheduleDaily valida hhmm y programa un recordatorio diario que se repite.
func (s *Scheduler) ScheduleDaily(ctx context.Context, title, hhmm string) (string, error) {
	hhmm = daytime.NormalizeTime(hhmm)
	hour, minute, err := daytime.ParseHHMM(hhmm)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	handle, err := s.n.Schedule(ctx,
		notifier.Content{Title: "Time for " + title, Body: bodyText},
		notifier.Trigger{Hour: hour, Minute: minute, Repeats: true},
	)
	s.metrics.ReminderScheduled(err == nil)
	if err != nil {
		return "", &SchedulingError{Time: hhmm, Err: err}
	}

	s.log.Debug("reminder scheduled", map[string]any{"time": hhmm, "handle": handle})
	return handle, nil
}

// Cancel es best-effort: handles ya disparados o ya cancelados no son error.
func (s *Scheduler) Cancel(ctx context.Context, handle string) {
	if handle == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.n.Cancel(ctx, handle); err != nil {
		s.log.Warn("cancel reminder failed", map[string]any{"handle": handle, "error": err})
		return
	}
	s.metrics.ReminderCancelled()
}

// RequestPermission se pide una vez al arrancar. Una negativa solo se loguea:
// los altas posteriores fallarán con SchedulingError si el SO las rechaza.
func (s *Scheduler) RequestPermission(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	granted, err := s.n.RequestPermission(ctx)
	if err != nil {
		s.log.Warn("notification permission request failed", map[string]any{"error": err})
		return false
	}
	if !granted {
		s.log.Warn("notifications disabled, enable them in settings for reminders", nil)
	}
	return granted
}
