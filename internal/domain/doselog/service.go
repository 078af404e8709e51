package doselog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"medication-adherence/internal/platform/daytime"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/metrics"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// Service es el ledger de tomas: append-only, a lo sumo una entrada
// por (fecha, medicamento, hora).
type Service struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[slotKey]int

	saver   Saver
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Options struct {
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

func NewService(saver Saver, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		entries: make([]Entry, 0),
		index:   make(map[slotKey]int),
		saver:   saver,
		log:     log.With(map[string]any{"component": "doselog"}),
		metrics: opts.Metrics,
		now:     time.Now,
	}
}

// Restore carga el log persistido. Si el store trae duplicados
// (datos viejos) se conserva la primera entrada de cada toma.
func (s *Service) Restore(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]Entry, 0, len(entries))
	s.index = make(map[slotKey]int, len(entries))
	for _, e := range entries {
		if _, dup := s.index[e.key()]; dup {
			continue
		}
		s.index[e.key()] = len(s.entries)
		s.entries = append(s.entries, e)
	}
}

// RecordTaken es idempotente: si la toma ya existe devuelve la entrada
// original con created=false y no persiste nada.
func (s *Service) RecordTaken(ctx context.Context, medicationID, hhmm, date string) (Entry, bool, error) {
	medicationID = strings.TrimSpace(medicationID)
	if medicationID == "" {
		return Entry{}, false, ErrInvalidInput
	}
	hhmm, err := daytime.ValidateTime(hhmm)
	if err != nil {
		return Entry{}, false, err
	}
	if _, err := daytime.ParseDate(date); err != nil {
		return Entry{}, false, ErrInvalidInput
	}
	date = strings.TrimSpace(date)

	e := Entry{Date: date, MedicationID: medicationID, Time: hhmm}

	s.mu.Lock()
	if idx, ok := s.index[e.key()]; ok {
		existing := s.entries[idx]
		s.mu.Unlock()
		return existing, false, nil
	}
	e.TakenAt = s.now()
	s.index[e.key()] = len(s.entries)
	s.entries = append(s.entries, e)
	// Se encola con el lock tomado para que el store no reciba un snapshot
	// viejo después de uno nuevo.
	if s.saver != nil {
		s.saver.SaveLogs(s.snapshotLocked())
	}
	s.mu.Unlock()

	s.metrics.DoseRecorded()
	s.log.Debug("dose recorded", map[string]any{"medication_id": medicationID, "time": hhmm, "date": date})

	return e, true, nil
}

// MarkTakenToday registra la toma para la fecha local de hoy.
func (s *Service) MarkTakenToday(ctx context.Context, medicationID, hhmm string) (Entry, bool, error) {
	return s.RecordTaken(ctx, medicationID, hhmm, daytime.Today(s.now()))
}

func (s *Service) IsTaken(ctx context.Context, medicationID, hhmm, date string) bool {
	k := slotKey{
		date:         strings.TrimSpace(date),
		medicationID: strings.TrimSpace(medicationID),
		time:         daytime.NormalizeTime(hhmm),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[k]
	return ok
}

// EntriesWithinDates filtra por fecha, conservando el orden del log.
func (s *Service) EntriesWithinDates(dates []string) []Entry {
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0)
	for _, e := range s.entries {
		if _, ok := set[e.Date]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Entries devuelve una copia del log completo.
func (s *Service) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() []Entry {
	return append(make([]Entry, 0, len(s.entries)), s.entries...)
}
