package medications

import "time"

// Medication es un medicamento con sus recordatorios diarios.
type Medication struct {
	ID   string
	Name string

	// Times en orden de alta, "HH:MM". Los duplicados se conservan.
	Times []string

	// ReminderHandles mapea cada hora a su recordatorio programado.
	// Con horas duplicadas queda el último handle; Handles guarda todos.
	ReminderHandles map[string]string
	Handles         []string

	CreatedAt time.Time
}

// Slot es una toma del día: (medicamento, hora).
type Slot struct {
	MedicationID string
	Name         string
	Time         string
}

// SlotsPerDay es la cantidad de tomas diarias que implica el medicamento.
func (m Medication) SlotsPerDay() int {
	return len(m.Times)
}

// AllHandles devuelve todos los handles a cancelar, sin repetir.
// Incluye datos viejos que solo tienen ReminderHandles.
func (m Medication) AllHandles() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(m.Handles))

	add := func(h string) {
		if h == "" {
			return
		}
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}

	for _, h := range m.Handles {
		add(h)
	}
	for _, t := range m.Times {
		add(m.ReminderHandles[t])
	}
	return out
}

func (m Medication) clone() Medication {
	c := m
	c.Times = append([]string(nil), m.Times...)
	c.Handles = append([]string(nil), m.Handles...)
	c.ReminderHandles = make(map[string]string, len(m.ReminderHandles))
	for k, v := range m.ReminderHandles {
		c.ReminderHandles[k] = v
	}
	return c
}
