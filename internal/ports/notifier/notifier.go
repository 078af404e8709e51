package notifier

import (
	"context"
	"time"
)

// Content es lo que ve el usuario en la notificación.
type Content struct {
	Title string
	Body  string
}

// Trigger describe un recordatorio diario a hora fija.
type Trigger struct {
	Hour    int
	Minute  int
	Repeats bool
}

// Fired es el evento que entrega el colaborador cuando un recordatorio suena.
type Fired struct {
	Handle  string
	Content Content
	FiredAt time.Time
}

// Notifier es el colaborador opaco de notificaciones locales.
// Los handles son opacos: solo sirven para cancelar.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	Schedule(ctx context.Context, content Content, trigger Trigger) (string, error)
	Cancel(ctx context.Context, handle string) error

	// OnFired registra un callback; el core no tiene obligaciones sobre él.
	OnFired(fn func(Fired))
}
