package approval

// Action is a workflow action an actor can request on a purchase
type Action string

const (
	ActionNone            Action = "none"
	ActionDirectorApprove Action = "director_approve"
	ActionFinanceApprove  Action = "finance_approve"
	ActionReject          Action = "reject"
)

var validActions = map[Action]bool{
	ActionDirectorApprove: true,
	ActionFinanceApprove:  true,
	ActionReject:          true,
}

// IsValid returns true if the action is a requestable workflow action.
// ActionNone is a policy decision, not something a caller can request.
func (a Action) IsValid() bool {
	return validActions[a]
}

// String returns the string representation of the action
func (a Action) String() string {
	return string(a)
}
