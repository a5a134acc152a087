package shared

//go:generate mockgen -source=ports.go -destination=../../mock/shared/ports.go -package=sharedmock

import (
	"context"
	"time"

	"calendar-assistant/internal/domain/calendar"
)

// CalendarGateway is the CRM calendar as seen by the pipeline. Every call
// may fail with an error marked errs.ErrTransientExternal (retryable) or
// errs.ErrPermanentExternal. Lookups of unknown events fail with
// errs.ErrNotFound and revision mismatches with errs.ErrRevisionConflict.
type CalendarGateway interface {
	FetchEvents(ctx context.Context, userID string, window calendar.Window) ([]calendar.Event, error)
	GetEvent(ctx context.Context, eventID string) (calendar.Event, error)
	// CreateEvent returns the persisted event with its ID and revision.
	CreateEvent(ctx context.Context, ev calendar.Event, correlationKey string) (calendar.Event, error)
	UpdateEvent(ctx context.Context, eventID string, patch calendar.Patch, expectedRevision, correlationKey string) (calendar.Event, error)
	// DeleteEvent treats an already absent event as success.
	DeleteEvent(ctx context.Context, eventID, correlationKey string) error
}

// IdempotencyLedger remembers which operation keys were already applied so
// that re-executing a plan does not repeat CRM side effects.
type IdempotencyLedger interface {
	// Begin records key as processing unless a live record exists, and
	// returns the stored record either way. started reports whether this
	// call created the record; only the caller that started a record may
	// act on it or release it.
	Begin(ctx context.Context, rec LedgerRecord) (stored *LedgerRecord, started bool, err error)
	Complete(ctx context.Context, key, externalID, revision string) error
	// Release forgets a processing record so a later attempt starts fresh.
	Release(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// TeamDirectory expands a team name into member user ids.
type TeamDirectory interface {
	Members(team string) ([]string, error)
}
