package plan

import (
	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/domain/conflict"
	"calendar-assistant/internal/domain/intent"
	"calendar-assistant/internal/pkg/errs"
)

// Target is one event the intent applies to. Original is the existing event
// for move and delete, nil for create and query. Report is the conflict
// analysis of the proposed slot and is zero for delete.
type Target struct {
	Original *calendar.Event
	Report   conflict.Report
}

type Planner struct{}

func NewPlanner() *Planner {
	return &Planner{}
}

// Plan turns a validated intent and its conflict analysis into the ordered
// operations for userID. When a slot conflicts and the intent does not
// allow auto-resolution, it returns a plan without operations together with
// a *NeedsUserChoiceError.
func (p *Planner) Plan(in intent.Intent, userID string, targets []Target) (MutationPlan, error) {
	mp := MutationPlan{
		ID:       PlanID(in.OriginID, userID),
		OriginID: in.OriginID,
		UserID:   userID,
		Action:   in.Action,
	}
	for _, t := range targets {
		if t.Report.Proposed.End.After(t.Report.Proposed.Start) {
			mp.Reports = append(mp.Reports, t.Report)
		}
	}

	var (
		ops        []Operation
		unresolved []conflict.Report
	)
	switch in.Action {
	case intent.ActionQuery:
		return mp, nil

	case intent.ActionCreate:
		for _, t := range targets {
			slot, ok := resolveSlot(t.Report, in.Constraints.AutoResolve)
			if !ok {
				unresolved = append(unresolved, t.Report)
				continue
			}
			ev := t.Report.Proposed.WithSlot(slot)
			ops = append(ops, Operation{
				Kind:           KindCreate,
				Event:          ev,
				IdempotencyKey: IdempotencyKey(in.OriginID, KindCreate, SlotTarget(ev.OwnerID, t.Report.Proposed.Interval())),
			})
		}

	case intent.ActionMove:
		for _, t := range targets {
			if t.Original == nil || !t.Original.IsPersisted() {
				return MutationPlan{}, errs.Mark(ErrMissingOriginal, errs.ErrValidation)
			}
			if t.Original.IsRecurring() {
				return MutationPlan{}, errs.Mark(ErrRecurringMove, errs.ErrValidation)
			}
			slot, ok := resolveSlot(t.Report, in.Constraints.AutoResolve)
			if !ok {
				unresolved = append(unresolved, t.Report)
				continue
			}
			ops = append(ops, moveOperations(in.OriginID, *t.Original, slot)...)
		}

	case intent.ActionDelete:
		for _, t := range targets {
			if t.Original == nil || !t.Original.IsPersisted() {
				continue
			}
			ops = append(ops, Operation{
				Kind:           KindDelete,
				Event:          t.Original.Clone(),
				IdempotencyKey: IdempotencyKey(in.OriginID, KindDelete, EventTarget(t.Original.ID)),
			})
		}

	default:
		return MutationPlan{}, errs.Mark(ErrUnsupportedIntent, errs.ErrValidation)
	}

	if len(unresolved) > 0 {
		return mp, &NeedsUserChoiceError{Reports: unresolved}
	}
	mp.Operations = ops
	return mp, nil
}

// moveOperations creates the copy first and deletes the original second,
// so a failure can at worst leave a duplicate, never lose the event.
func moveOperations(originID string, original calendar.Event, slot calendar.Window) []Operation {
	pair := IdempotencyKey(originID, "move", EventTarget(original.ID))[:16]
	return []Operation{
		{
			Kind:           KindCreate,
			Event:          original.WithSlot(slot),
			IdempotencyKey: IdempotencyKey(originID, KindCreate, "move:"+EventTarget(original.ID)),
			Compensation: &Compensation{
				Action: CompensationLeaveBoth,
				Note:   "original " + original.ID + " is kept if its deletion fails",
			},
			PairID: pair,
		},
		{
			Kind:           KindDelete,
			Event:          original.Clone(),
			IdempotencyKey: IdempotencyKey(originID, KindDelete, EventTarget(original.ID)),
			PairID:         pair,
		},
	}
}

func resolveSlot(report conflict.Report, autoResolve bool) (calendar.Window, bool) {
	if !report.HasConflicts() {
		return report.Proposed.Interval(), true
	}
	if !autoResolve {
		return calendar.Window{}, false
	}
	return report.Best()
}
