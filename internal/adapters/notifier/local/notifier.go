// Package local implementa el colaborador de notificaciones dentro del
// proceso: guarda los recordatorios y los dispara cuando el reloj cruza
// su HH:MM. Sirve para modo dev y para correr sin un gateway externo.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/ports/notifier"

	"github.com/google/uuid"
)

const DefaultTick = 30 * time.Second

type reminder struct {
	content notifier.Content
	trigger notifier.Trigger
}

type Notifier struct {
	mu        sync.Mutex
	reminders map[string]reminder
	order     []string
	subs      []func(notifier.Fired)
	lastCheck time.Time

	log   logger.Logger
	now   func() time.Time
	newID func() string
}

type Options struct {
	Logger logger.Logger
	Now    func() time.Time
}

func New(opts Options) *Notifier {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Notifier{
		reminders: make(map[string]reminder),
		order:     make([]string, 0),
		lastCheck: now(),
		log:       log.With(map[string]any{"component": "local-notifier"}),
		now:       now,
		newID:     uuid.NewString,
	}
}

// RequestPermission: en proceso no hay nada que pedir.
func (n *Notifier) RequestPermission(ctx context.Context) (bool, error) {
	return true, nil
}

func (n *Notifier) Schedule(ctx context.Context, content notifier.Content, trigger notifier.Trigger) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if trigger.Hour < 0 || trigger.Hour > 23 || trigger.Minute < 0 || trigger.Minute > 59 {
		return "", fmt.Errorf("invalid trigger %02d:%02d", trigger.Hour, trigger.Minute)
	}

	handle := "local-" + n.newID()

	n.mu.Lock()
	n.reminders[handle] = reminder{content: content, trigger: trigger}
	n.order = append(n.order, handle)
	n.mu.Unlock()

	return handle, nil
}

// Cancel de un handle desconocido no es error.
func (n *Notifier) Cancel(ctx context.Context, handle string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.removeLocked(handle)
	return nil
}

func (n *Notifier) OnFired(fn func(notifier.Fired)) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	n.subs = append(n.subs, fn)
	n.mu.Unlock()
}

// Pending devuelve la cantidad de recordatorios programados.
func (n *Notifier) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reminders)
}

// FireDue dispara los recordatorios cuya hora cayó en (último chequeo, now].
// Tras un hueco largo cada recordatorio se dispara una sola vez.
func (n *Notifier) FireDue(now time.Time) []notifier.Fired {
	n.mu.Lock()
	since := n.lastCheck
	if !now.After(since) {
		n.mu.Unlock()
		return nil
	}
	n.lastCheck = now

	fired := make([]notifier.Fired, 0)
	for _, h := range append([]string(nil), n.order...) {
		r := n.reminders[h]
		occ := lastOccurrence(now, r.trigger)
		if !occ.After(since) {
			continue
		}
		fired = append(fired, notifier.Fired{Handle: h, Content: r.content, FiredAt: now})
		if !r.trigger.Repeats {
			n.removeLocked(h)
		}
	}
	subs := make([]func(notifier.Fired), len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	for _, f := range fired {
		n.log.Info("reminder fired", map[string]any{"handle": f.Handle, "title": f.Content.Title})
		for _, fn := range subs {
			fn(f)
		}
	}
	return fired
}

// Run revisa cada tick hasta que ctx se cancele.
func (n *Notifier) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.FireDue(n.now())
		}
	}
}

func (n *Notifier) removeLocked(handle string) {
	if _, ok := n.reminders[handle]; !ok {
		return
	}
	delete(n.reminders, handle)
	for i, h := range n.order {
		if h == handle {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// lastOccurrence es la última vez (<= now) que tocaba HH:MM en la location de now.
func lastOccurrence(now time.Time, tr notifier.Trigger) time.Time {
	occ := time.Date(now.Year(), now.Month(), now.Day(), tr.Hour, tr.Minute, 0, 0, now.Location())
	if occ.After(now) {
		occ = occ.AddDate(0, 0, -1)
	}
	return occ
}
