package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"medication-adherence/internal/domain/doselog"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/logger"
	"medication-adherence/internal/platform/metrics"
	"medication-adherence/internal/ports/kvstore"
)

const (
	KeyMedications = "@meds_v1"
	KeyLogs        = "@logs_v1"

	DefaultWriteTimeout = 5 * time.Second
)

var (
	// ErrPersistence envuelve fallas del store. Nunca llega al usuario: solo se loguea.
	ErrPersistence = errors.New("persistence error")
)

// State es lo que se recupera del store al arrancar.
type State struct {
	Medications []medications.Medication
	Logs        []doselog.Entry
}

// Gateway carga el estado una vez y luego solo escribe.
// Las escrituras son fire-and-forget: se serializa el snapshot en el
// momento de la mutación y un writer en background lo baja al store.
// Si hay varias escrituras pendientes para la misma clave, gana la última.
type Gateway struct {
	store   kvstore.Store
	log     logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]string
	closed  bool

	// drainMu serializa los drains: un batch se escribe entero antes que el siguiente.
	drainMu sync.Mutex

	wake     chan struct{}
	flushReq chan chan struct{}
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once
}

type Options struct {
	Logger       logger.Logger
	Metrics      *metrics.Metrics
	WriteTimeout time.Duration
}

func NewGateway(store kvstore.Store, opts Options) *Gateway {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}

	g := &Gateway{
		store:    store,
		log:      log.With(map[string]any{"component": "persistence"}),
		metrics:  opts.Metrics,
		timeout:  timeout,
		pending:  make(map[string]string),
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go g.run()
	return g
}

// LoadState lee ambas claves. Clave ausente, error de lectura o JSON
// corrupto => slice vacío para esa clave; nunca falla.
func (g *Gateway) LoadState(ctx context.Context) State {
	st := State{
		Medications: []medications.Medication{},
		Logs:        []doselog.Entry{},
	}

	if raw, ok := g.read(ctx, KeyMedications); ok {
		meds, err := decodeMedications(raw)
		if err != nil {
			g.log.Warn("corrupt medications data, starting empty", map[string]any{"key": KeyMedications, "error": err})
		} else {
			st.Medications = meds
		}
	}

	if raw, ok := g.read(ctx, KeyLogs); ok {
		logs, err := decodeLogs(raw)
		if err != nil {
			g.log.Warn("corrupt dose log data, starting empty", map[string]any{"key": KeyLogs, "error": err})
		} else {
			st.Logs = logs
		}
	}

	g.log.Info("state loaded", map[string]any{"medications": len(st.Medications), "logs": len(st.Logs)})
	return st
}

func (g *Gateway) read(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		g.log.Warn("store read failed, starting empty", map[string]any{
			"key":   key,
			"error": fmt.Errorf("%w: %w", ErrPersistence, err),
		})
		return "", false
	}
	return raw, ok
}

// SaveMedications implementa medications.Saver.
func (g *Gateway) SaveMedications(meds []medications.Medication) {
	raw, err := encodeMedications(meds)
	if err != nil {
		g.log.Error("encode medications failed", map[string]any{"error": err})
		return
	}
	g.enqueue(KeyMedications, raw)
}

// SaveLogs implementa doselog.Saver.
func (g *Gateway) SaveLogs(entries []doselog.Entry) {
	raw, err := encodeLogs(entries)
	if err != nil {
		g.log.Error("encode dose logs failed", map[string]any{"error": err})
		return
	}
	g.enqueue(KeyLogs, raw)
}

func (g *Gateway) enqueue(key, value string) {
	g.mu.Lock()
	g.pending[key] = value
	closed := g.closed
	g.mu.Unlock()

	if closed {
		// Después de Close no hay writer: se drena en línea.
		g.drain()
		return
	}

	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// Flush espera a que todo lo encolado hasta ahora esté escrito (o haya fallado).
func (g *Gateway) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case g.flushReq <- ack:
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drena lo pendiente y detiene el writer.
func (g *Gateway) Close() {
	g.once.Do(func() {
		close(g.quit)
		<-g.done

		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()

		// lo que llegó entre el último drain del writer y closed=true
		g.drain()
	})
}

func (g *Gateway) run() {
	defer close(g.done)
	for {
		select {
		case <-g.wake:
			g.drain()
		case ack := <-g.flushReq:
			g.drain()
			close(ack)
		case <-g.quit:
			g.drain()
			return
		}
	}
}

func (g *Gateway) drain() {
	g.drainMu.Lock()
	defer g.drainMu.Unlock()

	for {
		g.mu.Lock()
		if len(g.pending) == 0 {
			g.mu.Unlock()
			return
		}
		batch := g.pending
		g.pending = make(map[string]string)
		g.mu.Unlock()

		keys := make([]string, 0, len(batch))
		for k := range batch {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			g.write(k, batch[k])
		}
	}
}

func (g *Gateway) write(key, value string) {
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()

	err := g.store.Set(ctx, key, value)
	g.metrics.StoreWrite(key, err == nil)
	if err != nil {
		// El estado en memoria sigue siendo correcto; solo se pierde durabilidad.
		g.log.Error("store write failed", map[string]any{
			"key":   key,
			"error": fmt.Errorf("%w: %w", ErrPersistence, err),
		})
	}
}
