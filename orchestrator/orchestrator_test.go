package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"washcore/store"
)

// --- fakes ---

type fakeStore struct {
	machines  map[string]*store.Machine
	order     []string
	mutations int

	failJobWrite  bool
	dropOnMutate  bool
	failStatusErr error
}

func newFakeStore(machines ...*store.Machine) *fakeStore {
	f := &fakeStore{machines: make(map[string]*store.Machine)}
	for _, m := range machines {
		f.machines[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeStore) ListMachinesAtLocation(locationID string) ([]*store.Machine, error) {
	var out []*store.Machine
	for _, id := range f.order {
		m, ok := f.machines[id]
		if !ok || m.LocationID != locationID {
			continue
		}
		snap := *m
		out = append(out, &snap)
	}
	return out, nil
}

func (f *fakeStore) GetMachine(id string) (*store.Machine, error) {
	m, ok := f.machines[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	snap := *m
	return &snap, nil
}

func (f *fakeStore) UpdateMachineStatus(id string, status store.Status) error {
	if f.failStatusErr != nil {
		return f.failStatusErr
	}
	f.mutations++
	if f.dropOnMutate {
		delete(f.machines, id)
		return nil
	}
	if m, ok := f.machines[id]; ok {
		m.Status = status
	}
	return nil
}

func (f *fakeStore) UpdateMachineJob(id, jobID string) error {
	if f.failJobWrite {
		return errors.New("job write failed")
	}
	f.mutations++
	if m, ok := f.machines[id]; ok {
		j := jobID
		m.JobID = &j
	}
	return nil
}

type fakeCache struct {
	entries map[string]*store.Machine
	puts    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*store.Machine)}
}

func (c *fakeCache) Get(_ context.Context, id string) (*store.Machine, error) {
	m, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	snap := *m
	return &snap, nil
}

func (c *fakeCache) Put(_ context.Context, id string, m *store.Machine) error {
	snap := *m
	c.entries[id] = &snap
	c.puts++
	return nil
}

type fakeDevice struct {
	err   error
	calls int
}

func (d *fakeDevice) StartCycle(_ context.Context, _ string) error {
	d.calls++
	return d.err
}

type fakeSink struct {
	events []TransitionEvent
}

func (s *fakeSink) MachineTransition(ev TransitionEvent) {
	s.events = append(s.events, ev)
}

func machine(id, location string, status store.Status) *store.Machine {
	return &store.Machine{ID: id, LocationID: location, Status: status}
}

// --- Reserve ---

func TestReserveNoAvailableMachine(t *testing.T) {
	st := newFakeStore(
		machine("w1", "loc-1", store.StatusRunning),
		machine("w2", "loc-1", store.StatusError),
	)
	cache := newFakeCache()
	svc := New(st, cache, &fakeDevice{}, nil)

	res, err := svc.Reserve(context.Background(), "loc-1", "job-1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Code != StatusNotFound {
		t.Errorf("code = %d, want %d", res.Code, StatusNotFound)
	}
	if res.Machine != nil {
		t.Error("machine should be nil")
	}
	if st.mutations != 0 {
		t.Errorf("mutations = %d, want 0", st.mutations)
	}
	if cache.puts != 0 {
		t.Errorf("cache puts = %d, want 0", cache.puts)
	}
}

func TestReservePicksFirstAvailable(t *testing.T) {
	st := newFakeStore(
		machine("w1", "loc-1", store.StatusRunning),
		machine("w2", "loc-1", store.StatusAvailable),
		machine("w3", "loc-1", store.StatusAvailable),
	)
	cache := newFakeCache()
	sink := &fakeSink{}
	svc := New(st, cache, &fakeDevice{}, sink)

	res, err := svc.Reserve(context.Background(), "loc-1", "job-7")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Code != StatusOK {
		t.Fatalf("code = %d, want %d", res.Code, StatusOK)
	}
	if res.Machine.ID != "w2" {
		t.Errorf("picked %s, want w2 (first available)", res.Machine.ID)
	}
	if res.Machine.Status != store.StatusAwaitingDropoff {
		t.Errorf("status = %s, want AWAITING_DROPOFF", res.Machine.Status)
	}
	if res.Machine.JobID == nil || *res.Machine.JobID != "job-7" {
		t.Errorf("jobID = %v, want job-7", res.Machine.JobID)
	}

	// w3 untouched
	if st.machines["w3"].Status != store.StatusAvailable {
		t.Error("w3 should remain AVAILABLE")
	}

	// Cache agrees with store
	cached, _ := cache.Get(context.Background(), "w2")
	if cached == nil || cached.Status != store.StatusAwaitingDropoff {
		t.Errorf("cache entry = %+v, want AWAITING_DROPOFF snapshot", cached)
	}

	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	ev := sink.events[0]
	if ev.From != store.StatusAvailable || ev.To != store.StatusAwaitingDropoff {
		t.Errorf("event %s -> %s, want AVAILABLE -> AWAITING_DROPOFF", ev.From, ev.To)
	}
	if ev.JobID != "job-7" {
		t.Errorf("event jobID = %q, want job-7", ev.JobID)
	}
}

func TestReserveRereadVanished(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAvailable))
	st.dropOnMutate = true
	cache := newFakeCache()
	svc := New(st, cache, &fakeDevice{}, nil)

	res, err := svc.Reserve(context.Background(), "loc-1", "job-1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Code != StatusNotFound {
		t.Errorf("code = %d, want %d", res.Code, StatusNotFound)
	}
	if res.Machine != nil {
		t.Error("machine should be nil after vanished reread")
	}
	if cache.puts != 0 {
		t.Error("cache must not be written for a vanished record")
	}
}

func TestReserveJobWriteFailureReported(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAvailable))
	st.failJobWrite = true
	svc := New(st, newFakeCache(), &fakeDevice{}, nil)

	_, err := svc.Reserve(context.Background(), "loc-1", "job-1")
	if err == nil {
		t.Fatal("expected error when job bind fails after status write")
	}
}

// --- Get ---

func TestGetServesCacheHit(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusRunning))
	cache := newFakeCache()
	// Stale snapshot: the cache-first read accepts bounded staleness.
	cache.Put(context.Background(), "w1", machine("w1", "loc-1", store.StatusAwaitingDropoff))
	svc := New(st, cache, &fakeDevice{}, nil)

	res, err := svc.Get(context.Background(), "w1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Code != StatusOK {
		t.Fatalf("code = %d, want %d", res.Code, StatusOK)
	}
	if res.Machine.Status != store.StatusAwaitingDropoff {
		t.Errorf("status = %s, want the cached snapshot", res.Machine.Status)
	}
}

func TestGetReadThroughFillsCache(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAvailable))
	cache := newFakeCache()
	svc := New(st, cache, &fakeDevice{}, nil)

	res, err := svc.Get(context.Background(), "w1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Code != StatusOK {
		t.Fatalf("code = %d, want %d", res.Code, StatusOK)
	}
	cached, _ := cache.Get(context.Background(), "w1")
	if cached == nil || cached.Status != store.StatusAvailable {
		t.Errorf("cache fill = %+v, want store record", cached)
	}
}

func TestGetUnknownMachine(t *testing.T) {
	svc := New(newFakeStore(), newFakeCache(), &fakeDevice{}, nil)

	res, err := svc.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if res.Code != StatusNotFound {
		t.Errorf("code = %d, want %d", res.Code, StatusNotFound)
	}
	if res.Machine != nil {
		t.Error("machine should be nil")
	}
}

// --- Start ---

func TestStartRejectsWrongState(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAvailable))
	cache := newFakeCache()
	dev := &fakeDevice{}
	svc := New(st, cache, dev, nil)

	res, err := svc.Start(context.Background(), "w1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Code != StatusBadRequest {
		t.Errorf("code = %d, want %d", res.Code, StatusBadRequest)
	}
	if res.Machine == nil || res.Machine.Status != store.StatusAvailable {
		t.Errorf("machine = %+v, want unmutated AVAILABLE record", res.Machine)
	}
	if dev.calls != 0 {
		t.Error("device must not be called on a precondition violation")
	}
	if st.mutations != 0 {
		t.Errorf("mutations = %d, want 0", st.mutations)
	}
	// The start read path does not fill the cache; the mutation would
	// have refreshed it anyway.
	if cache.puts != 0 {
		t.Errorf("cache puts = %d, want 0", cache.puts)
	}
}

func TestStartUnknownMachine(t *testing.T) {
	dev := &fakeDevice{}
	svc := New(newFakeStore(), newFakeCache(), dev, nil)

	res, err := svc.Start(context.Background(), "nope")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Code != StatusNotFound {
		t.Errorf("code = %d, want %d", res.Code, StatusNotFound)
	}
	if dev.calls != 0 {
		t.Error("device must not be called for an unknown machine")
	}
}

func TestStartSuccess(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAwaitingDropoff))
	cache := newFakeCache()
	sink := &fakeSink{}
	svc := New(st, cache, &fakeDevice{}, sink)

	res, err := svc.Start(context.Background(), "w1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Code != StatusOK {
		t.Fatalf("code = %d, want %d", res.Code, StatusOK)
	}
	if res.Machine.Status != store.StatusRunning {
		t.Errorf("status = %s, want RUNNING", res.Machine.Status)
	}
	if st.machines["w1"].Status != store.StatusRunning {
		t.Errorf("store status = %s, want RUNNING", st.machines["w1"].Status)
	}
	cached, _ := cache.Get(context.Background(), "w1")
	if cached == nil || cached.Status != store.StatusRunning {
		t.Errorf("cache entry = %+v, want RUNNING snapshot", cached)
	}
	if len(sink.events) != 1 || sink.events[0].To != store.StatusRunning {
		t.Errorf("events = %+v, want one AWAITING_DROPOFF -> RUNNING", sink.events)
	}
}

func TestStartDeviceFailureCompensates(t *testing.T) {
	st := newFakeStore(machine("w2", "loc-1", store.StatusAwaitingDropoff))
	cache := newFakeCache()
	sink := &fakeSink{}
	svc := New(st, cache, &fakeDevice{err: errors.New("motor fault")}, sink)

	res, err := svc.Start(context.Background(), "w2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Code != StatusHardwareError {
		t.Fatalf("code = %d, want %d", res.Code, StatusHardwareError)
	}
	if res.Machine.Status != store.StatusError {
		t.Errorf("status = %s, want ERROR", res.Machine.Status)
	}
	if st.machines["w2"].Status != store.StatusError {
		t.Errorf("store status = %s, never leave AWAITING_DROPOFF after device failure", st.machines["w2"].Status)
	}
	cached, _ := cache.Get(context.Background(), "w2")
	if cached == nil || cached.Status != store.StatusError {
		t.Errorf("cache entry = %+v, want ERROR snapshot", cached)
	}
	if len(sink.events) != 1 || sink.events[0].To != store.StatusError {
		t.Errorf("events = %+v, want one transition to ERROR", sink.events)
	}
}

func TestStartCompensatingWriteFailureSurfaces(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAwaitingDropoff))
	st.failStatusErr = errors.New("store down")
	svc := New(st, newFakeCache(), &fakeDevice{err: errors.New("motor fault")}, nil)

	_, err := svc.Start(context.Background(), "w1")
	if err == nil {
		t.Fatal("expected error when the compensating write cannot land")
	}
}

func TestStartRereadVanished(t *testing.T) {
	st := newFakeStore(machine("w1", "loc-1", store.StatusAwaitingDropoff))
	st.dropOnMutate = true
	svc := New(st, newFakeCache(), &fakeDevice{}, nil)

	res, err := svc.Start(context.Background(), "w1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Code != StatusNotFound {
		t.Errorf("code = %d, want %d", res.Code, StatusNotFound)
	}
}
