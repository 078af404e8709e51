package adherence

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/adherence", thisWeekHandler(svc))
}

// adherenceResponse es el resumen "esta semana".
type adherenceResponse struct {
	Pct       int      `json:"pct"`
	Scheduled int      `json:"scheduled"`
	Taken     int      `json:"taken"`
	Window    []string `json:"window"`
}

// thisWeekHandler godoc
// @Summary Adherencia de los últimos 7 días
// @Description Tomas registradas sobre tomas esperadas en la ventana hoy..hoy-6 (fecha local). Cada medicamento cuenta todos los días de la ventana.
// @Tags adherence
// @Produce json
// @Success 200 {object} adherenceResponse
// @Router /adherence [get]
func thisWeekHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := svc.ThisWeek(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(adherenceResponse{
			Pct:       res.Pct,
			Scheduled: res.ScheduledCount,
			Taken:     res.TakenCount,
			Window:    res.Window,
		})
	}
}
