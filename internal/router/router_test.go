package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"medication-adherence/internal/adapters/notifier/local"
	"medication-adherence/internal/adapters/storage/memory"
	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/domain/reminders"
	"medication-adherence/internal/persistence"
	"medication-adherence/internal/platform/metrics"
	"medication-adherence/internal/router"

	"github.com/prometheus/client_golang/prometheus"
)

type testEnv struct {
	srv      *httptest.Server
	notifier *local.Notifier
	gateway  *persistence.Gateway
	store    interface {
		Get(ctx context.Context, key string) (string, bool, error)
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	store := memory.NewKVStore()
	gw := persistence.NewGateway(store, persistence.Options{Metrics: m})
	n := local.New(local.Options{})
	sched := reminders.NewScheduler(n, reminders.Options{Metrics: m})

	meds := medications.NewService(sched, gw, medications.Options{Metrics: m})
	doses := doselog.NewService(gw, doselog.Options{Metrics: m})

	ts := httptest.NewServer(router.NewRouter(router.Options{
		Medications: meds,
		Doses:       doses,
		Adherence:   adherence.NewService(meds, doses),
		Gatherer:    reg,
	}))
	t.Cleanup(func() {
		ts.Close()
		gw.Close()
	})

	return &testEnv{srv: ts, notifier: n, gateway: gw, store: store}
}

func TestHTTP_EndToEnd_AddTakeAdherence(t *testing.T) {
	env := newTestEnv(t)
	base := env.srv.URL

	// 1) Alta con horas en CSV, se normalizan
	st, body := doReq(t, base, "POST", "/medications", map[string]any{
		"name":  "Metformin",
		"times": "8:00, 20:00",
	})
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medication, got %d body=%s", st, string(body))
	}
	var med struct {
		ID              string            `json:"id"`
		Times           []string          `json:"times"`
		ReminderHandles map[string]string `json:"reminder_handles"`
	}
	_ = json.Unmarshal(body, &med)
	if med.ID == "" {
		t.Fatalf("create medication: missing id body=%s", string(body))
	}
	if strings.Join(med.Times, ",") != "08:00,20:00" {
		t.Fatalf("expected normalized times, got %v", med.Times)
	}
	if len(med.ReminderHandles) != 2 || env.notifier.Pending() != 2 {
		t.Fatalf("expected 2 reminders, got handles=%v pending=%d", med.ReminderHandles, env.notifier.Pending())
	}

	// 2) Tomas de hoy ordenadas por hora, ninguna tomada
	{
		st, body := doReq(t, base, "GET", "/doses/today", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 today, got %d body=%s", st, string(body))
		}
		var resp struct {
			Slots []struct {
				Time  string `json:"time"`
				Taken bool   `json:"taken"`
			} `json:"slots"`
		}
		_ = json.Unmarshal(body, &resp)
		if len(resp.Slots) != 2 || resp.Slots[0].Time != "08:00" || resp.Slots[0].Taken {
			t.Fatalf("unexpected today slots: %s", string(body))
		}
	}

	// 3) Marcar 08:00: 201 y luego 200 (idempotente)
	{
		st, body := doReq(t, base, "POST", "/doses", map[string]any{"medication_id": med.ID, "time": "8:00"})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 record dose, got %d body=%s", st, string(body))
		}
		st, body = doReq(t, base, "POST", "/doses", map[string]any{"medication_id": med.ID, "time": "08:00"})
		if st != http.StatusOK {
			t.Fatalf("expected 200 repeated dose, got %d body=%s", st, string(body))
		}
	}
	{
		st, body := doReq(t, base, "GET", "/doses/taken?medication_id="+med.ID+"&time=08:00", nil)
		if st != http.StatusOK || !strings.Contains(string(body), `"taken":true`) {
			t.Fatalf("expected taken=true, got %d body=%s", st, string(body))
		}
	}

	// 4) 1 tomada de 14 esperadas => 7%
	{
		st, body := doReq(t, base, "GET", "/adherence", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 adherence, got %d body=%s", st, string(body))
		}
		var resp struct {
			Pct       int      `json:"pct"`
			Scheduled int      `json:"scheduled"`
			Taken     int      `json:"taken"`
			Window    []string `json:"window"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Scheduled != 14 || resp.Taken != 1 || resp.Pct != 7 || len(resp.Window) != 7 {
			t.Fatalf("unexpected adherence: %s", string(body))
		}
	}

	// 5) Borrar cancela recordatorios y conserva el log
	{
		st, _ := doReq(t, base, "DELETE", "/medications/"+med.ID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 delete, got %d", st)
		}
		if env.notifier.Pending() != 0 {
			t.Fatalf("expected no pending reminders, got %d", env.notifier.Pending())
		}
		st, _ = doReq(t, base, "DELETE", "/medications/"+med.ID, nil)
		if st != http.StatusNoContent {
			t.Fatalf("expected 204 on repeated delete, got %d", st)
		}
		st, _ = doReq(t, base, "GET", "/medications/"+med.ID, nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", st)
		}
	}

	// 6) Lo persistido refleja el estado final
	if err := env.gateway.Flush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}
	raw, ok, _ := env.store.Get(context.Background(), persistence.KeyLogs)
	if !ok || !strings.Contains(raw, `"medId":"`+med.ID+`"`) {
		t.Fatalf("expected persisted dose log, got %q", raw)
	}
	raw, _, _ = env.store.Get(context.Background(), persistence.KeyMedications)
	if strings.TrimSpace(raw) != "[]" {
		t.Fatalf("expected empty persisted medications, got %q", raw)
	}
}

func TestHTTP_CreateMedication_RejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	cases := []map[string]any{
		{"name": "   ", "times": []string{"08:00"}},
		{"name": "Aspirin", "times": []string{"08:00", "25:00"}},
		{"name": "Aspirin", "times": []string{}},
	}
	for _, payload := range cases {
		st, body := doReq(t, env.srv.URL, "POST", "/medications", payload)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d body=%s", payload, st, string(body))
		}
	}

	if env.notifier.Pending() != 0 {
		t.Fatalf("invalid input must not schedule, pending=%d", env.notifier.Pending())
	}
	st, body := doReq(t, env.srv.URL, "GET", "/medications", nil)
	if st != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Fatalf("expected empty list, got %d body=%s", st, string(body))
	}
}

func TestHTTP_RecordDose_UnknownMedicationOrTime(t *testing.T) {
	env := newTestEnv(t)

	st, _ := doReq(t, env.srv.URL, "POST", "/doses", map[string]any{"medication_id": "nope", "time": "08:00"})
	if st != http.StatusNotFound {
		t.Fatalf("expected 404 unknown medication, got %d", st)
	}

	_, body := doReq(t, env.srv.URL, "POST", "/medications", map[string]any{"name": "Aspirin", "times": []string{"08:00"}})
	var med struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &med)

	st, _ = doReq(t, env.srv.URL, "POST", "/doses", map[string]any{"medication_id": med.ID, "time": "09:00"})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 unscheduled time, got %d", st)
	}
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	st, body := doReq(t, env.srv.URL, "GET", "/health", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("expected ok health, got %d body=%s", st, string(body))
	}

	_, _ = doReq(t, env.srv.URL, "POST", "/medications", map[string]any{"name": "Aspirin", "times": []string{"08:00"}})

	st, body = doReq(t, env.srv.URL, "GET", "/metrics", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 metrics, got %d", st)
	}
	if !strings.Contains(string(body), "medadherence_") {
		t.Fatalf("expected app metrics, body=%s", string(body))
	}
}

func doReq(t *testing.T, baseURL, method, path string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}
