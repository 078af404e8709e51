// Package natsbus publica en NATS los recordatorios disparados, para que
// otros procesos (p.ej. un widget o un bot) puedan reaccionar.
package natsbus

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/ports/notifier"

	"github.com/nats-io/nats.go"
)

const DefaultSubject = "reminders.fired"

type firedMessage struct {
	Handle  string    `json:"handle"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	FiredAt time.Time `json:"fired_at"`
}

type Publisher struct {
	nc      *nats.Conn
	subject string
	log     logger.Logger
}

// Connect abre la conexión con reintentos, igual que el resto de los servicios.
func Connect(url string) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url required")
	}
	return nats.Connect(url,
		nats.Name("medication-adherence"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
}

func NewPublisher(nc *nats.Conn, subject string, log logger.Logger) *Publisher {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		nc:      nc,
		subject: subject,
		log:     log.With(map[string]any{"component": "natsbus"}),
	}
}

// Publish es un callback para Notifier.OnFired. Los errores solo se loguean.
func (p *Publisher) Publish(f notifier.Fired) {
	b, err := json.Marshal(firedMessage{
		Handle:  f.Handle,
		Title:   f.Content.Title,
		Body:    f.Content.Body,
		FiredAt: f.FiredAt,
	})
	if err != nil {
		p.log.Error("encode fired event failed", map[string]any{"error": err})
		return
	}
	if err := p.nc.Publish(p.subject, b); err != nil {
		p.log.Warn("publish fired event failed", map[string]any{"subject": p.subject, "error": err})
	}
}
