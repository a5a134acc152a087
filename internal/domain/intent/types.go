package intent

type Action string

const (
	ActionCreate Action = "create"
	ActionMove   Action = "move"
	ActionDelete Action = "delete"
	ActionQuery  Action = "query"
)

func (a Action) String() string {
	return string(a)
}

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionMove, ActionDelete, ActionQuery:
		return true
	default:
		return false
	}
}

// Mutates reports whether the action changes remote state.
func (a Action) Mutates() bool {
	return a != ActionQuery
}

func NewAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", ErrUnknownAction
	}
	return a, nil
}
