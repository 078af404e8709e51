// Package metrics expone contadores Prometheus del core.
// Todos los métodos aceptan receptor nil para que los servicios
// funcionen sin métricas (tests, CLI).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "medadherence"

type Metrics struct {
	remindersScheduled *prometheus.CounterVec
	remindersCancelled prometheus.Counter
	remindersFired     prometheus.Counter
	dosesRecorded      prometheus.Counter
	storeWrites        *prometheus.CounterVec
	medications        prometheus.Gauge
}

// New registra los collectors en reg (usar prometheus.NewRegistry() en tests).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		remindersScheduled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_scheduled_total",
			Help:      "Recordatorios diarios pedidos al colaborador de notificaciones, por resultado.",
		}, []string{"result"}),
		remindersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_cancelled_total",
			Help:      "Recordatorios cancelados (best-effort).",
		}),
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_fired_total",
			Help:      "Recordatorios disparados por el colaborador.",
		}),
		dosesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "doses_recorded_total",
			Help:      "Tomas registradas como tomadas (sin contar repetidas).",
		}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Escrituras al store clave/valor, por clave y resultado.",
		}, []string{"key", "result"}),
		medications: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "medications",
			Help:      "Medicamentos activos en el registro.",
		}),
	}

	reg.MustRegister(
		m.remindersScheduled,
		m.remindersCancelled,
		m.remindersFired,
		m.dosesRecorded,
		m.storeWrites,
		m.medications,
	)
	return m
}

func (m *Metrics) ReminderScheduled(ok bool) {
	if m == nil {
		return
	}
	m.remindersScheduled.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ReminderCancelled() {
	if m == nil {
		return
	}
	m.remindersCancelled.Inc()
}

func (m *Metrics) ReminderFired() {
	if m == nil {
		return
	}
	m.remindersFired.Inc()
}

func (m *Metrics) DoseRecorded() {
	if m == nil {
		return
	}
	m.dosesRecorded.Inc()
}

func (m *Metrics) StoreWrite(key string, ok bool) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(key, result(ok)).Inc()
}

func (m *Metrics) SetMedications(n int) {
	if m == nil {
		return
	}
	m.medications.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
