package ledger

import (
	"context"
	"sync"
	"time"

	"calendar-assistant/internal/infra"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/usecase/shared"
)

// MemoryLedger keeps records in process. Used in tests and when no
// persistent driver is configured.
type MemoryLedger struct {
	mu      sync.Mutex
	clock   clock.Clock
	records map[string]shared.LedgerRecord
}

func NewMemoryLedger(clk clock.Clock) *MemoryLedger {
	return &MemoryLedger{clock: clk, records: make(map[string]shared.LedgerRecord)}
}

func (l *MemoryLedger) Begin(_ context.Context, rec shared.LedgerRecord) (*shared.LedgerRecord, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.records[rec.Key]; ok && existing.ExpiresAt.After(l.clock.Now()) {
		return &existing, false, nil
	}
	rec.Status = shared.LedgerStatusProcessing
	rec.ExternalID, rec.Revision = "", ""
	l.records[rec.Key] = rec
	out := rec
	return &out, true, nil
}

func (l *MemoryLedger) Complete(_ context.Context, key, externalID, revision string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok {
		return infra.RepositoryError{Kind: infra.KindNotFound}
	}
	rec.Status = shared.LedgerStatusCompleted
	rec.ExternalID = externalID
	rec.Revision = revision
	l.records[key] = rec
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[key]; ok && rec.Status == shared.LedgerStatusProcessing {
		delete(l.records, key)
	}
	return nil
}

func (l *MemoryLedger) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for key, rec := range l.records {
		if !rec.ExpiresAt.After(now) {
			delete(l.records, key)
			n++
		}
	}
	return n, nil
}
