package medications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"medication-adherence/internal/domain/reminders"
	"medication-adherence/internal/platform/daytime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Test doubles
// -------------------------

type fakeScheduler struct {
	mu        sync.Mutex
	active    map[string]string // handle -> time
	cancelled []string
	seq       int

	// failOn hace fallar la programación de esa hora.
	failOn string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{active: map[string]string{}}
}

func (f *fakeScheduler) ScheduleDaily(ctx context.Context, title, hhmm string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if hhmm == f.failOn {
		return "", &reminders.SchedulingError{Time: hhmm, Err: errors.New("permission denied")}
	}
	f.seq++
	h := fmt.Sprintf("notif-%d", f.seq)
	f.active[h] = hhmm
	return h, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, handle string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cancelled = append(f.cancelled, handle)
	delete(f.active, handle)
}

type fakeSaver struct {
	mu    sync.Mutex
	saves [][]Medication
}

func (f *fakeSaver) SaveMedications(meds []Medication) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, meds)
}

func (f *fakeSaver) last() []Medication {
	if len(f.saves) == 0 {
		return nil
	}
	return f.saves[len(f.saves)-1]
}

func newTestService() (*Service, *fakeScheduler, *fakeSaver) {
	sched := newFakeScheduler()
	saver := &fakeSaver{}
	svc := NewService(sched, saver, Options{})

	now := time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("med-%d", n)
	}
	return svc, sched, saver
}

// -------------------------
// Tests
// -------------------------

func TestService_Add_NormalizesAndSchedulesEveryTime(t *testing.T) {
	svc, sched, saver := newTestService()

	m, err := svc.Add(context.Background(), "  Amoxicillin ", []string{"8:00", "20:00", "08:00"})
	require.NoError(t, err)

	assert.Equal(t, "med-1", m.ID)
	assert.Equal(t, "Amoxicillin", m.Name)
	// Duplicados se conservan en orden.
	assert.Equal(t, []string{"08:00", "20:00", "08:00"}, m.Times)
	assert.Len(t, m.Handles, 3)
	for _, tm := range m.Times {
		assert.NotEmpty(t, m.ReminderHandles[tm], "missing handle for %s", tm)
	}
	assert.Len(t, sched.active, 3)

	require.Len(t, saver.saves, 1)
	assert.Equal(t, []Medication{m}, saver.last())
}

func TestService_Add_Validation(t *testing.T) {
	svc, sched, saver := newTestService()

	_, err := svc.Add(context.Background(), "   ", []string{"08:00"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Add(context.Background(), "Ibuprofen", []string{" ", ""})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "times", ve.Field)

	assert.Empty(t, svc.List(context.Background()))
	assert.Empty(t, sched.active)
	assert.Empty(t, saver.saves)
}

func TestService_Add_InvalidTime_LeaksNoHandle(t *testing.T) {
	svc, sched, saver := newTestService()

	_, err := svc.Add(context.Background(), "Ibuprofen", []string{"08:00", "24:00"})
	var ite *daytime.InvalidTimeError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, "24:00", ite.Value)

	assert.Empty(t, svc.List(context.Background()))
	assert.Empty(t, sched.active)
	assert.Zero(t, sched.seq)
	assert.Empty(t, saver.saves)
}

func TestService_Add_RejectsNonCanonicalTimes(t *testing.T) {
	for _, bad := range []string{"12:3", "8:5", "+9:00", "008:00"} {
		t.Run(bad, func(t *testing.T) {
			svc, sched, saver := newTestService()

			_, err := svc.Add(context.Background(), "A", []string{"08:00", bad})
			var ite *daytime.InvalidTimeError
			require.ErrorAs(t, err, &ite)

			assert.Empty(t, svc.List(context.Background()))
			assert.Zero(t, sched.seq)
			assert.Empty(t, saver.saves)
		})
	}
}

func TestService_Add_SchedulingFailure_RollsBack(t *testing.T) {
	svc, sched, saver := newTestService()
	sched.failOn = "20:00"

	_, err := svc.Add(context.Background(), "Metformin", []string{"08:00", "14:00", "20:00"})
	var se *reminders.SchedulingError
	require.ErrorAs(t, err, &se)

	assert.Empty(t, svc.List(context.Background()))
	assert.Empty(t, sched.active, "handles from the aborted attempt must be cancelled")
	assert.ElementsMatch(t, []string{"notif-1", "notif-2"}, sched.cancelled)
	assert.Empty(t, saver.saves)
}

func TestService_Remove_CancelsAndIsIdempotent(t *testing.T) {
	svc, sched, saver := newTestService()
	ctx := context.Background()

	a, err := svc.Add(ctx, "A", []string{"08:00", "08:00"})
	require.NoError(t, err)
	b, err := svc.Add(ctx, "B", []string{"09:00"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, a.ID))
	// Ambos handles de la hora duplicada se cancelan.
	assert.ElementsMatch(t, a.Handles, sched.cancelled)
	assert.Equal(t, []Medication{b}, svc.List(ctx))
	savesAfterFirst := len(saver.saves)

	require.NoError(t, svc.Remove(ctx, a.ID))
	require.NoError(t, svc.Remove(ctx, "unknown"))
	assert.Equal(t, []Medication{b}, svc.List(ctx))
	assert.Len(t, saver.saves, savesAfterFirst, "no-op remove must not persist")
	assert.Len(t, sched.cancelled, 2)
}

func TestService_List_InsertionOrder_AndCopies(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	for _, n := range []string{"C", "A", "B"} {
		_, err := svc.Add(ctx, n, []string{"10:00"})
		require.NoError(t, err)
	}

	list := svc.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "C", list[0].Name)
	assert.Equal(t, "A", list[1].Name)
	assert.Equal(t, "B", list[2].Name)

	list[0].Times[0] = "99:99"
	assert.Equal(t, "10:00", svc.List(ctx)[0].Times[0])
}

func TestService_TodaySlots_SortedStable(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Add(ctx, "Evening", []string{"20:00", "08:00"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "Morning", []string{"08:00"})
	require.NoError(t, err)

	got := svc.TodaySlots(ctx)
	assert.Equal(t, []Slot{
		{MedicationID: "med-1", Name: "Evening", Time: "08:00"},
		{MedicationID: "med-2", Name: "Morning", Time: "08:00"},
		{MedicationID: "med-1", Name: "Evening", Time: "20:00"},
	}, got)
}

func TestService_GetByID(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	m, err := svc.Add(ctx, "A", []string{"07:00"})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = svc.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Restore_ReplacesState(t *testing.T) {
	svc, _, saver := newTestService()

	svc.Restore([]Medication{{
		ID:              "old-1",
		Name:            "Legacy",
		Times:           []string{"07:00"},
		ReminderHandles: map[string]string{"07:00": "n-1"},
	}})

	list := svc.List(context.Background())
	require.Len(t, list, 1)
	assert.Equal(t, "old-1", list[0].ID)
	assert.Empty(t, saver.saves)
}

func TestMedication_AllHandles_LegacyData(t *testing.T) {
	m := Medication{
		Times:           []string{"08:00", "20:00"},
		ReminderHandles: map[string]string{"08:00": "a", "20:00": "b"},
	}
	assert.Equal(t, []string{"a", "b"}, m.AllHandles())

	m.Handles = []string{"x", "a"}
	assert.Equal(t, []string{"x", "a", "b"}, m.AllHandles())
}

func TestService_ConcurrentAdds_SaveSnapshotsInOrder(t *testing.T) {
	svc, _, saver := newTestService()
	svc.newID = seqIDs()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Add(context.Background(), fmt.Sprintf("Med %d", i), []string{"08:00"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Cada snapshot encolado es el anterior más un medicamento: el último
	// guardado es siempre el estado completo.
	require.Len(t, saver.saves, n)
	for i, snap := range saver.saves {
		assert.Len(t, snap, i+1, "save %d out of order", i)
	}
	assert.Equal(t, svc.List(context.Background()), saver.last())
}

func TestService_Reschedule_ReplacesHandlesAndPersists(t *testing.T) {
	svc, sched, saver := newTestService()
	svc.Restore([]Medication{{
		ID:              "m-1",
		Name:            "Metformin",
		Times:           []string{"08:00", "20:00"},
		ReminderHandles: map[string]string{"08:00": "dead-1", "20:00": "dead-2"},
		Handles:         []string{"dead-1", "dead-2"},
	}})

	require.NoError(t, svc.Reschedule(context.Background()))

	m, err := svc.GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"notif-1", "notif-2"}, m.Handles)
	assert.Equal(t, map[string]string{"08:00": "notif-1", "20:00": "notif-2"}, m.ReminderHandles)
	assert.Len(t, sched.active, 2)
	assert.Empty(t, sched.cancelled, "stale handles are not cancelled")

	require.Len(t, saver.saves, 1)
	assert.Equal(t, []Medication{m}, saver.last())
}

func TestService_Reschedule_FailureKeepsPreviousHandles(t *testing.T) {
	svc, sched, _ := newTestService()
	svc.Restore([]Medication{
		{ID: "ok", Name: "A", Times: []string{"08:00"}, Handles: []string{"old-a"}, ReminderHandles: map[string]string{"08:00": "old-a"}},
		{ID: "bad", Name: "B", Times: []string{"09:00", "21:00"}, Handles: []string{"old-b1", "old-b2"}, ReminderHandles: map[string]string{"09:00": "old-b1", "21:00": "old-b2"}},
	})
	sched.failOn = "21:00"

	err := svc.Reschedule(context.Background())
	var se *reminders.SchedulingError
	require.ErrorAs(t, err, &se)

	ok, _ := svc.GetByID(context.Background(), "ok")
	assert.Equal(t, []string{"notif-1"}, ok.Handles)

	bad, _ := svc.GetByID(context.Background(), "bad")
	assert.Equal(t, []string{"old-b1", "old-b2"}, bad.Handles)
	// 09:00 quedó programado y se canceló al fallar 21:00.
	assert.Len(t, sched.active, 1)
	assert.Equal(t, []string{"notif-2"}, sched.cancelled)
}

func seqIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("med-%03d", n)
	}
}
