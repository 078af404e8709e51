package doselog

import "time"

// Entry registra que la toma (Date, MedicationID, Time) se confirmó.
// MedicationID es una referencia débil: la entrada sobrevive al borrado
// del medicamento como hecho histórico.
type Entry struct {
	Date         string // YYYY-MM-DD en que tocaba la toma
	MedicationID string
	Time         string // HH:MM
	TakenAt      time.Time
}

type slotKey struct {
	date, medicationID, time string
}

func (e Entry) key() slotKey {
	return slotKey{date: e.Date, medicationID: e.MedicationID, time: e.Time}
}
