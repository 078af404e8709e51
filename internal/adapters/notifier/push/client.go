// Package push habla con un gateway HTTP de notificaciones push que
// programa recordatorios recurrentes en el dispositivo.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"medication-adherence/internal/platform/httpclient"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/ports/notifier"
)

var (
	ErrNotConfigured = errors.New("push gateway not configured")
	ErrEmptyHandle   = errors.New("push gateway returned empty reminder id")
)

type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
}

type Client struct {
	http *httpclient.Client
	log  logger.Logger

	mu   sync.RWMutex
	subs []func(notifier.Fired)
}

func NewClient(cfg Config, log logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	hc, err := httpclient.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	hc.Headers[h] = strings.TrimSpace(cfg.APIKey)

	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		http: hc,
		log:  log.With(map[string]any{"component": "push-notifier"}),
	}, nil
}

type permissionResponse struct {
	Granted bool `json:"granted"`
}

type scheduleRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Repeats bool   `json:"repeats"`
}

type scheduleResponse struct {
	ID string `json:"id"`
}

func (c *Client) RequestPermission(ctx context.Context) (bool, error) {
	var out permissionResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, "/v1/permission", nil, &out); err != nil {
		return false, err
	}
	return out.Granted, nil
}

func (c *Client) Schedule(ctx context.Context, content notifier.Content, trigger notifier.Trigger) (string, error) {
	var out scheduleResponse
	err := c.http.DoJSON(ctx, http.MethodPost, "/v1/reminders", scheduleRequest{
		Title:   content.Title,
		Body:    content.Body,
		Hour:    trigger.Hour,
		Minute:  trigger.Minute,
		Repeats: trigger.Repeats,
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ID) == "" {
		return "", ErrEmptyHandle
	}
	return out.ID, nil
}

// Cancel trata 404 como éxito: el recordatorio ya no existe.
func (c *Client) Cancel(ctx context.Context, handle string) error {
	err := c.http.DoJSON(ctx, http.MethodDelete, "/v1/reminders/"+url.PathEscape(handle), nil, nil)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

func (c *Client) OnFired(fn func(notifier.Fired)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

type firedPayload struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	FiredAt time.Time `json:"fired_at"`
}

// WebhookHandler recibe los avisos de "recordatorio disparado" del gateway.
func (c *Client) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p firedPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil || strings.TrimSpace(p.ID) == "" {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if p.FiredAt.IsZero() {
			p.FiredAt = time.Now()
		}

		f := notifier.Fired{
			Handle:  p.ID,
			Content: notifier.Content{Title: p.Title, Body: p.Body},
			FiredAt: p.FiredAt,
		}

		c.mu.RLock()
		subs := make([]func(notifier.Fired), len(c.subs))
		copy(subs, c.subs)
		c.mu.RUnlock()

		c.log.Info("reminder fired", map[string]any{"handle": f.Handle})
		for _, fn := range subs {
			fn(f)
		}
		w.WriteHeader(http.StatusAccepted)
	}
}
