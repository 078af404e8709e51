// Package daytime normaliza y compara fechas de calendario ("YYYY-MM-DD")
// y horas del día ("HH:MM").
package daytime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"

	// WindowDays es la ventana móvil usada para adherencia (hoy + 6 días previos).
	WindowDays = 7
)

// Clock devuelve "ahora". Se inyecta en servicios para poder fijarlo en tests.
type Clock func() time.Time

// InvalidTimeError nombra el token HH:MM que no pudo validarse.
type InvalidTimeError struct {
	Value string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid time: %s", e.Value)
}

// NormalizeTime recorta espacios y completa la hora de un dígito ("8:00" -> "08:00").
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if len(s) == 4 {
		return "0" + s
	}
	return s
}

// ParseHHMM valida una hora ya normalizada y devuelve hora y minuto.
// Ambas partes deben ser exactamente dos dígitos ASCII.
func ParseHHMM(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || !twoDigits(parts[0]) || !twoDigits(parts[1]) {
		return 0, 0, &InvalidTimeError{Value: s}
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, &InvalidTimeError{Value: s}
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, &InvalidTimeError{Value: s}
	}

	if hour > 23 || minute > 59 {
		return 0, 0, &InvalidTimeError{Value: s}
	}
	return hour, minute, nil
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}

// ValidateTime normaliza y valida en un paso; devuelve la forma canónica.
func ValidateTime(s string) (string, error) {
	n := NormalizeTime(s)
	if _, _, err := ParseHHMM(n); err != nil {
		return "", err
	}
	return n, nil
}

// ParseTimesList separa una lista "08:00, 20:00" en horas normalizadas.
// No valida ni deduplica; descarta entradas vacías.
func ParseTimesList(csv string) []string {
	out := make([]string, 0)
	for _, raw := range strings.Split(csv, ",") {
		t := strings.TrimSpace(raw)
		if t == "" {
			continue
		}
		out = append(out, NormalizeTime(t))
	}
	return out
}

// FormatDate devuelve la fecha de calendario de t en su propia location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate valida "YYYY-MM-DD".
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// TrailingWindow devuelve las fechas de hoy hacia atrás: today, today-1, ..., today-(days-1).
// Se opera sobre días de calendario (AddDate) para no depender de la duración del día.
func TrailingWindow(today time.Time, days int) []string {
	if days <= 0 {
		return []string{}
	}
	out := make([]string, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, FormatDate(today.AddDate(0, 0, -i)))
	}
	return out
}

// Today es la fecha local de now.
func Today(now time.Time) string {
	return FormatDate(now.In(time.Local))
}
