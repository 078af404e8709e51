package medications

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"medication-adherence/internal/platform/daytime"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/metrics"

	"github.com/google/uuid"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("medication not found")
)

// ValidationError es un error corregible por el usuario (nombre vacío, sin horas).
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Service es el registro de medicamentos. Es dueño exclusivo de los
// Medication; el ledger de tomas solo los referencia por ID.
type Service struct {
	mu    sync.RWMutex
	items []Medication

	sched   ReminderScheduler
	saver   Saver
	log     logger.Logger
	metrics *metrics.Metrics

	now   func() time.Time
	newID func() string
}

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewService(sched ReminderScheduler, saver Saver, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		items:   make([]Medication, 0),
		sched:   sched,
		saver:   saver,
		log:     log.With(map[string]any{"component": "medications"}),
		metrics: opts.Metrics,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Restore reemplaza el estado en memoria con lo cargado del store (arranque).
// No persiste ni reprograma. Si el colaborador no conserva sus recordatorios
// entre reinicios hay que llamar a Reschedule después.
func (s *Service) Restore(meds []Medication) {
	items := make([]Medication, 0, len(meds))
	for _, m := range meds {
		items = append(items, m.clone())
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	s.metrics.SetMedications(len(items))
}

// Add valida, programa un recordatorio por hora y recién entonces agrega
// el medicamento. Si una programación falla se cancelan las ya hechas
// en este intento y el registro queda intacto.
func (s *Service) Add(ctx context.Context, name string, times []string) (Medication, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Medication{}, &ValidationError{Field: "name", Msg: "name is required"}
	}

	normalized := make([]string, 0, len(times))
	for _, t := range times {
		if strings.TrimSpace(t) == "" {
			continue
		}
		normalized = append(normalized, daytime.NormalizeTime(t))
	}
	if len(normalized) == 0 {
		return Medication{}, &ValidationError{Field: "times", Msg: "at least one time (HH:MM) is required"}
	}

	// Validar todo antes de tocar al colaborador: una hora inválida no deja handles.
	for _, t := range normalized {
		if _, _, err := daytime.ParseHHMM(t); err != nil {
			return Medication{}, err
		}
	}

	handles, byTime, err := s.scheduleAll(ctx, name, normalized)
	if err != nil {
		s.log.Warn("add medication aborted", map[string]any{"name": name, "error": err})
		return Medication{}, err
	}

	m := Medication{
		ID:              s.newID(),
		Name:            name,
		Times:           normalized,
		ReminderHandles: byTime,
		Handles:         handles,
		CreatedAt:       s.now(),
	}

	s.mu.Lock()
	s.items = append(s.items, m)
	s.persistLocked()
	s.mu.Unlock()

	s.log.Info("medication added", map[string]any{"medication_id": m.ID, "times": strings.Join(m.Times, ",")})

	return m.clone(), nil
}

// Remove cancela todos los recordatorios del medicamento y lo borra.
// ID desconocido => no-op.
func (s *Service) Remove(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	m := s.items[idx]
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	s.persistLocked()
	s.mu.Unlock()

	// Una cancelación fallida deja un recordatorio colgado en el SO; es aceptable.
	cctx := context.WithoutCancel(ctx)
	for _, h := range m.AllHandles() {
		s.sched.Cancel(cctx, h)
	}

	s.log.Info("medication removed", map[string]any{"medication_id": id})
	return nil
}

// Reschedule vuelve a programar todas las horas de los medicamentos cargados
// y guarda los handles nuevos. Los handles viejos no se cancelan: se usa
// cuando el colaborador perdió sus recordatorios (notificador local tras
// reiniciar). Si una hora falla ese medicamento conserva sus handles
// anteriores y se devuelve el primer error.
func (s *Service) Reschedule(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for i := range s.items {
		m := &s.items[i]
		handles, byTime, err := s.scheduleAll(ctx, m.Name, m.Times)
		if err != nil {
			s.log.Warn("reschedule medication failed", map[string]any{"medication_id": m.ID, "error": err})
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		m.Handles = handles
		m.ReminderHandles = byTime
	}

	s.persistLocked()
	s.log.Info("reminders rescheduled", map[string]any{"medications": len(s.items)})
	return firstErr
}

// List devuelve los medicamentos en orden de alta.
func (s *Service) List(ctx context.Context) []Medication {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(strings.TrimSpace(id))
	if idx < 0 {
		return Medication{}, ErrNotFound
	}
	return s.items[idx].clone(), nil
}

// TodaySlots expande cada medicamento en sus tomas del día, ordenadas por
// hora; a igual hora se respeta el orden de alta.
func (s *Service) TodaySlots(ctx context.Context) []Slot {
	s.mu.RLock()
	out := make([]Slot, 0)
	for _, m := range s.items {
		for _, t := range m.Times {
			out = append(out, Slot{MedicationID: m.ID, Name: m.Name, Time: t})
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

func (s *Service) rollback(ctx context.Context, handles []string) {
	cctx := context.WithoutCancel(ctx)
	for _, h := range handles {
		s.sched.Cancel(cctx, h)
	}
}

// scheduleAll programa una vez cada hora. Ante una falla cancela lo
// programado en esta llamada.
func (s *Service) scheduleAll(ctx context.Context, name string, times []string) ([]string, map[string]string, error) {
	handles := make([]string, 0, len(times))
	byTime := make(map[string]string, len(times))
	for _, t := range times {
		h, err := s.sched.ScheduleDaily(ctx, name, t)
		if err != nil {
			s.rollback(ctx, handles)
			return nil, nil, err
		}
		handles = append(handles, h)
		byTime[t] = h
	}
	return handles, byTime, nil
}

// persistLocked encola el snapshot con el lock tomado, así el orden de
// encolado es el mismo que el de las mutaciones.
func (s *Service) persistLocked() {
	s.metrics.SetMedications(len(s.items))
	if s.saver == nil {
		return
	}
	s.saver.SaveMedications(s.snapshotLocked())
}

func (s *Service) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, m := range s.items {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) snapshotLocked() []Medication {
	out := make([]Medication, 0, len(s.items))
	for _, m := range s.items {
		out = append(out, m.clone())
	}
	return out
}
