package commands

import (
	"sync"
	"time"

	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/bulk"
)

const DefaultPlanTTL = time.Hour

type registryEntry struct {
	plan      PlanResult
	execution *ExecutionResult
	expiresAt time.Time
}

// PlanRegistry holds planned intents between interpret-and-plan and
// execute. Only one execution of a plan runs at a time. A fully successful
// execution is final and replayed afterwards; any other result puts the
// plan back to planned so it can be executed again.
type PlanRegistry struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]*registryEntry
}

func NewPlanRegistry(clk clock.Clock, ttl time.Duration) *PlanRegistry {
	if ttl <= 0 {
		ttl = DefaultPlanTTL
	}
	return &PlanRegistry{
		clock:   clk,
		ttl:     ttl,
		entries: make(map[string]*registryEntry),
	}
}

// Register stores p unless a live plan with the same id exists, in which
// case the stored plan is returned with true.
func (r *PlanRegistry) Register(p PlanResult) (PlanResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.live(p.ID); ok {
		return e.plan, true
	}
	p.Status = PlanStatusPlanned
	r.entries[p.ID] = &registryEntry{plan: p, expiresAt: r.clock.Now().Add(r.ttl)}
	return p, false
}

func (r *PlanRegistry) Get(id string) (PlanResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(id)
	if !ok {
		return PlanResult{}, false
	}
	return e.plan, true
}

// Begin claims a plan for execution. For a plan that already executed
// successfully it returns the cached result instead.
func (r *PlanRegistry) Begin(id string) (PlanResult, *ExecutionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(id)
	if !ok {
		return PlanResult{}, nil, errs.Wrapf(errs.ErrPlanNotFound, "plan %s", id)
	}
	switch e.plan.Status {
	case PlanStatusExecuting:
		return PlanResult{}, nil, errs.Wrapf(errs.ErrPlanInProgress, "plan %s", id)
	case PlanStatusExecuted:
		cached := *e.execution
		return e.plan, &cached, nil
	}
	e.plan.Status = PlanStatusExecuting
	return e.plan, nil, nil
}

func (r *PlanRegistry) Finish(id string, exec ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return
	}
	e.execution = &exec
	e.expiresAt = r.clock.Now().Add(r.ttl)
	if exec.Result.Classification == bulk.FullSuccess {
		e.plan.Status = PlanStatusExecuted
	} else {
		e.plan.Status = PlanStatusPlanned
	}
}

// Prune drops expired plans that are not executing.
func (r *PlanRegistry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for id, e := range r.entries {
		if e.plan.Status != PlanStatusExecuting && now.After(e.expiresAt) {
			delete(r.entries, id)
			removed++
		}
	}
	return removed
}

func (r *PlanRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *PlanRegistry) live(id string) (*registryEntry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	if e.plan.Status != PlanStatusExecuting && r.clock.Now().After(e.expiresAt) {
		delete(r.entries, id)
		return nil, false
	}
	return e, true
}
