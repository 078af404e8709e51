package adherence

import (
	"context"
	"math"
	"time"

	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/daytime"
)

// Result resume la adherencia de la ventana móvil.
type Result struct {
	Pct            int
	ScheduledCount int
	TakenCount     int
	Window         []string // fechas, hoy primero
}

// Compute es una función pura sobre snapshots del registro y del ledger.
//
// Cada toma de cada medicamento se asume programada todos los días de la
// ventana, aunque el medicamento se haya dado de alta a mitad de ella.
// Las entradas de medicamentos ya borrados también cuentan.
func Compute(meds []medications.Medication, entries []doselog.Entry, today time.Time) Result {
	window := daytime.TrailingWindow(today, daytime.WindowDays)

	perDay := 0
	for _, m := range meds {
		perDay += m.SlotsPerDay()
	}
	scheduled := perDay * len(window)

	inWindow := make(map[string]struct{}, len(window))
	for _, d := range window {
		inWindow[d] = struct{}{}
	}
	taken := 0
	for _, e := range entries {
		if _, ok := inWindow[e.Date]; ok {
			taken++
		}
	}

	pct := 0
	if scheduled > 0 {
		pct = int(math.Round(100 * float64(taken) / float64(scheduled)))
	}

	return Result{
		Pct:            pct,
		ScheduledCount: scheduled,
		TakenCount:     taken,
		Window:         window,
	}
}

// Registry y Ledger son las vistas de solo lectura que usa Service.
type Registry interface {
	List(ctx context.Context) []medications.Medication
}

type Ledger interface {
	EntriesWithinDates(dates []string) []doselog.Entry
}

// Service arma la adherencia de "esta semana" con el reloj inyectado.
type Service struct {
	registry Registry
	ledger   Ledger
	now      func() time.Time
}

func NewService(registry Registry, ledger Ledger) *Service {
	return &Service{
		registry: registry,
		ledger:   ledger,
		now:      time.Now,
	}
}

func (s *Service) ThisWeek(ctx context.Context) Result {
	today := s.now().In(time.Local)
	window := daytime.TrailingWindow(today, daytime.WindowDays)
	return Compute(s.registry.List(ctx), s.ledger.EntriesWithinDates(window), today)
}
