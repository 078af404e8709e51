package doselog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/daytime"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Schedule es la vista del registro que necesitan los handlers de tomas.
type Schedule interface {
	GetByID(ctx context.Context, id string) (medications.Medication, error)
	TodaySlots(ctx context.Context) []medications.Slot
}

func RegisterRoutes(r chi.Router, svc *Service, schedule Schedule) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/today", todayHandler(svc, schedule))
		dr.Post("/", recordTakenHandler(svc, schedule))
		dr.Get("/taken", isTakenHandler(svc))
	})
}

// recordTakenRequest marca una toma como tomada. Sin date => hoy.
type recordTakenRequest struct {
	MedicationID string `json:"medication_id" validate:"required"`
	Time         string `json:"time" validate:"required"`
	Date         string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// doseEntryResponse es una entrada del log de tomas.
type doseEntryResponse struct {
	Date         string    `json:"date"`
	MedicationID string    `json:"medication_id"`
	Time         string    `json:"time"`
	TakenAt      time.Time `json:"taken_at"`
	Created      bool      `json:"created"`
}

// todaySlotResponse es una toma del día con su estado.
type todaySlotResponse struct {
	MedicationID string `json:"medication_id"`
	Name         string `json:"name"`
	Time         string `json:"time"`
	Taken        bool   `json:"taken"`
}

type todayResponse struct {
	Date  string              `json:"date"`
	Slots []todaySlotResponse `json:"slots"`
}

// todayHandler godoc
// @Summary Tomas de hoy
// @Description Todas las tomas (medicamento, hora) del día ordenadas por hora, con el flag de tomada.
// @Tags doses
// @Produce json
// @Success 200 {object} todayResponse
// @Router /doses/today [get]
func todayHandler(svc *Service, schedule Schedule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := daytime.Today(svc.now())
		slots := schedule.TodaySlots(r.Context())

		out := todayResponse{Date: today, Slots: make([]todaySlotResponse, 0, len(slots))}
		for _, s := range slots {
			out.Slots = append(out.Slots, todaySlotResponse{
				MedicationID: s.MedicationID,
				Name:         s.Name,
				Time:         s.Time,
				Taken:        svc.IsTaken(r.Context(), s.MedicationID, s.Time, today),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// recordTakenHandler godoc
// @Summary Marcar toma como tomada
// @Description Idempotente por (fecha, medicamento, hora): repetir devuelve 200 con la entrada original.
// @Tags doses
// @Accept json
// @Produce json
// @Param payload body recordTakenRequest true "Toma; date YYYY-MM-DD opcional (default hoy)"
// @Success 201 {object} doseEntryResponse
// @Success 200 {object} doseEntryResponse
// @Failure 400 {string} string "invalid json / hora fuera del esquema"
// @Failure 404 {string} string "medication not found"
// @Router /doses [post]
func recordTakenHandler(svc *Service, schedule Schedule) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recordTakenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := schedule.GetByID(r.Context(), req.MedicationID)
		if err != nil {
			http.Error(w, "medication not found", http.StatusNotFound)
			return
		}

		hhmm := daytime.NormalizeTime(req.Time)
		if !hasTime(m, hhmm) {
			http.Error(w, "time is not scheduled for this medication", http.StatusBadRequest)
			return
		}

		date := strings.TrimSpace(req.Date)
		if date == "" {
			date = daytime.Today(svc.now())
		}

		e, created, err := svc.RecordTaken(r.Context(), m.ID, hhmm, date)
		if err != nil {
			var ite *daytime.InvalidTimeError
			if errors.As(err, &ite) || errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, doseEntryResponse{
			Date:         e.Date,
			MedicationID: e.MedicationID,
			Time:         e.Time,
			TakenAt:      e.TakenAt,
			Created:      created,
		})
	}
}

// isTakenHandler godoc
// @Summary ¿Toma registrada?
// @Tags doses
// @Produce json
// @Param medication_id query string true "ID del medicamento"
// @Param time query string true "HH:MM"
// @Param date query string false "YYYY-MM-DD (default hoy)"
// @Success 200 {object} map[string]bool
// @Router /doses/taken [get]
func isTakenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		medID := strings.TrimSpace(q.Get("medication_id"))
		hhmm := strings.TrimSpace(q.Get("time"))
		if medID == "" || hhmm == "" {
			http.Error(w, "medication_id and time are required", http.StatusBadRequest)
			return
		}

		date := strings.TrimSpace(q.Get("date"))
		if date == "" {
			date = daytime.Today(svc.now())
		}

		writeJSON(w, http.StatusOK, map[string]bool{
			"taken": svc.IsTaken(r.Context(), medID, hhmm, date),
		})
	}
}

func hasTime(m medications.Medication, hhmm string) bool {
	for _, t := range m.Times {
		if t == hhmm {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
