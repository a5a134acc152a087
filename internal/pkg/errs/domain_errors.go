package errs

import "errors"

// Markers for the calendar command pipeline. Concrete errors carry detail
// and are tagged with one of these via Mark or an Is method.
var (
	// Input errors, surfaced before any mutation
	ErrValidation      = errors.New("validation failed")
	ErrStaleData       = errors.New("calendar snapshot is stale")
	ErrNeedsUserChoice = errors.New("conflicts require a user choice")

	// Remote state errors
	ErrRevisionConflict = errors.New("event revision changed")
	ErrNotFound         = errors.New("event not found")

	// CRM transport errors
	ErrTransientExternal = errors.New("transient external error")
	ErrPermanentExternal = errors.New("permanent external error")

	// Plan lifecycle errors
	ErrPlanNotFound    = errors.New("plan not found")
	ErrPlanInProgress  = errors.New("plan execution in progress")
	ErrForbidden       = errors.New("forbidden")
	ErrUnknownTeam     = errors.New("unknown team")
	ErrLedgerOperation = errors.New("idempotency ledger operation failed")
)
