package medications

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"medication-adherence/internal/domain/reminders"
	"medication-adherence/internal/platform/daytime"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/medications", func(mr chi.Router) {
		mr.Post("/", createMedicationHandler(svc))
		mr.Get("/", listMedicationsHandler(svc))
		mr.Get("/{medicationID}", getMedicationHandler(svc))

		// Idempotente: borrar un ID desconocido también devuelve 204.
		mr.Delete("/{medicationID}", deleteMedicationHandler(svc))
	})
}

// timesInput acepta ["08:00","20:00"] o "08:00, 20:00" (como el formulario de alta).
type timesInput []string

func (t *timesInput) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*t = list
		return nil
	}
	var csv string
	if err := json.Unmarshal(b, &csv); err != nil {
		return errors.New("times must be an array of HH:MM or a comma separated string")
	}
	*t = daytime.ParseTimesList(csv)
	return nil
}

// createMedicationRequest es el cuerpo para dar de alta un medicamento.
type createMedicationRequest struct {
	Name  string     `json:"name" validate:"max=200"`
	Times timesInput `json:"times" swaggertype:"array,string" validate:"max=48"`
}

// medicationResponse representa un medicamento con sus recordatorios.
type medicationResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Times           []string          `json:"times"`
	ReminderHandles map[string]string `json:"reminder_handles"`
	CreatedAt       *time.Time        `json:"created_at,omitempty"`
}

// createMedicationHandler godoc
// @Summary Alta de medicamento
// @Description Valida nombre y horas (HH:MM, "8:00" se normaliza a "08:00"), programa un recordatorio diario por hora y guarda el medicamento. Si alguna programación falla no queda nada programado ni guardado.
// @Tags medications
// @Accept json
// @Produce json
// @Param payload body createMedicationRequest true "Nombre y horas; times puede ser array o string separado por comas"
// @Success 201 {object} medicationResponse
// @Failure 400 {string} string "invalid json / nombre vacío / hora inválida"
// @Failure 502 {string} string "el colaborador de notificaciones rechazó la programación"
// @Router /medications [post]
func createMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		m, err := svc.Add(r.Context(), req.Name, req.Times)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

// listMedicationsHandler godoc
// @Summary Listar medicamentos
// @Description Devuelve los medicamentos en orden de alta.
// @Tags medications
// @Produce json
// @Success 200 {array} medicationResponse
// @Router /medications [get]
func listMedicationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := svc.List(r.Context())

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// deleteMedicationHandler godoc
// @Summary Borrar medicamento
// @Description Cancela todos sus recordatorios (best-effort) y lo borra. Las tomas registradas se conservan.
// @Tags medications
// @Param medicationID path string true "ID del medicamento"
// @Success 204
// @Router /medications/{medicationID} [delete]
func deleteMedicationHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Remove(r.Context(), chi.URLParam(r, "medicationID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var (
		ite *daytime.InvalidTimeError
		se  *reminders.SchedulingError
	)
	switch {
	case errors.As(err, &ite), errors.Is(err, ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "medication not found", http.StatusNotFound)
	case errors.As(err, &se):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	out := medicationResponse{
		ID:              m.ID,
		Name:            m.Name,
		Times:           m.Times,
		ReminderHandles: m.ReminderHandles,
	}
	if !m.CreatedAt.IsZero() {
		ts := m.CreatedAt
		out.CreatedAt = &ts
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
