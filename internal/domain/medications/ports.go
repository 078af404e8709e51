package medications

import "context"

// ReminderScheduler es lo que el Registry necesita del adaptador de recordatorios.
type ReminderScheduler interface {
	ScheduleDaily(ctx context.Context, title, hhmm string) (string, error)
	Cancel(ctx context.Context, handle string)
}

// Saver persiste el estado completo luego de cada mutación.
// Es best-effort: no devuelve error.
type Saver interface {
	SaveMedications(meds []Medication)
}
