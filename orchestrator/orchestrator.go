// Package orchestrator is the machine-state core: every status transition
// goes through here, and every store mutation is followed by a cache
// refresh so reads never see a stale pre-mutation snapshot.
package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"washcore/device"
	"washcore/machinecache"
	"washcore/store"
)

// Service executes the reserve/get/start transitions. Domain outcomes are
// normalized into Result codes; only infrastructure faults surface as
// errors. Concurrent requests are not serialized: two reservations racing
// on the same location can pick the same machine, matching the upstream
// behavior this service replaces.
type Service struct {
	store  MachineStore
	cache  machinecache.Cache
	device device.Controller
	events EventSink
}

func New(st MachineStore, cache machinecache.Cache, dev device.Controller, events EventSink) *Service {
	if events == nil {
		events = noopSink{}
	}
	return &Service{store: st, cache: cache, device: dev, events: events}
}

// Reserve binds a job to the first available machine at the location and
// moves it to AWAITING_DROPOFF. The listing is always store-served: an
// availability search needs a fresh multi-record view, not cache entries.
func (s *Service) Reserve(ctx context.Context, locationID, jobID string) (Result, error) {
	machines, err := s.store.ListMachinesAtLocation(locationID)
	if err != nil {
		return Result{}, fmt.Errorf("list machines at %s: %w", locationID, err)
	}

	var picked *store.Machine
	for _, m := range machines {
		if m.Status == store.StatusAvailable {
			picked = m
			break
		}
	}
	if picked == nil {
		return Result{Code: StatusNotFound}, nil
	}

	if err := s.store.UpdateMachineStatus(picked.ID, store.StatusAwaitingDropoff); err != nil {
		return Result{}, fmt.Errorf("reserve %s: %w", picked.ID, err)
	}
	// Second authoritative write. If it fails the status write above has
	// already landed; the store offers no transaction across the two, so
	// the gap is reported to the caller rather than papered over.
	if err := s.store.UpdateMachineJob(picked.ID, jobID); err != nil {
		return Result{}, fmt.Errorf("bind job %s to %s: %w", jobID, picked.ID, err)
	}

	return s.refresh(ctx, picked.ID, StatusOK, picked.Status)
}

// Get is a cache-first read. A cache hit is served as-is; the bounded
// staleness window is accepted in exchange for skipping the store.
func (s *Service) Get(ctx context.Context, machineID string) (Result, error) {
	if m := s.cacheGet(ctx, machineID); m != nil {
		return Result{Code: StatusOK, Machine: m}, nil
	}

	m, err := s.store.GetMachine(machineID)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{Code: StatusNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("get machine %s: %w", machineID, err)
	}

	if err := s.cache.Put(ctx, machineID, m); err != nil {
		log.Printf("orchestrator: cache fill %s: %v", machineID, err)
	}
	return Result{Code: StatusOK, Machine: m}, nil
}

// Start triggers the physical cycle for a reserved machine. On controller
// failure the recorded state is compensated to ERROR; it must never stay
// AWAITING_DROPOFF after a failed physical attempt.
func (s *Service) Start(ctx context.Context, machineID string) (Result, error) {
	m := s.cacheGet(ctx, machineID)
	if m == nil {
		var err error
		m, err = s.store.GetMachine(machineID)
		if errors.Is(err, sql.ErrNoRows) {
			return Result{Code: StatusNotFound}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("get machine %s: %w", machineID, err)
		}
	}

	if m.Status != store.StatusAwaitingDropoff {
		return Result{Code: StatusBadRequest, Machine: m}, nil
	}

	next := store.StatusRunning
	code := StatusOK
	if err := s.device.StartCycle(ctx, machineID); err != nil {
		log.Printf("orchestrator: start cycle %s: %v", machineID, err)
		next = store.StatusError
		code = StatusHardwareError
	}

	if err := s.store.UpdateMachineStatus(machineID, next); err != nil {
		// Worst case for a failed start: the compensating write did not
		// land and the store still says AWAITING_DROPOFF. Surface it loudly.
		return Result{}, fmt.Errorf("record %s for %s: %w", next, machineID, err)
	}

	return s.refresh(ctx, machineID, code, m.Status)
}

// refresh re-reads the post-mutation record, writes it through to the
// cache, and emits the transition event. A vanished record is reported as
// NotFound: the world is inconsistent, but that is not this service's
// fault to escalate.
func (s *Service) refresh(ctx context.Context, machineID string, code int, from store.Status) (Result, error) {
	m, err := s.store.GetMachine(machineID)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{Code: StatusNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("reread machine %s: %w", machineID, err)
	}

	if err := s.cache.Put(ctx, machineID, m); err != nil {
		log.Printf("orchestrator: cache write-through %s: %v", machineID, err)
	}

	jobID := ""
	if m.JobID != nil {
		jobID = *m.JobID
	}
	s.events.MachineTransition(TransitionEvent{
		EventID:   uuid.NewString(),
		MachineID: m.ID,
		Location:  m.LocationID,
		From:      from,
		To:        m.Status,
		JobID:     jobID,
		At:        time.Now(),
	})

	return Result{Code: code, Machine: m}, nil
}

// cacheGet tolerates cache failures: a broken cache degrades to store
// reads instead of failing requests.
func (s *Service) cacheGet(ctx context.Context, machineID string) *store.Machine {
	m, err := s.cache.Get(ctx, machineID)
	if err != nil {
		log.Printf("orchestrator: cache read %s: %v", machineID, err)
		return nil
	}
	return m
}
