package workflows

// StateMachine enforces document status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewDocumentStateMachine creates the state machine for document lifecycles
func NewDocumentStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[string][]string{
			"draft":       {"published"},
			"published":   {"in_signing"},
			"in_signing":  {"completed", "regenerated"},
			"regenerated": {"in_signing"}, // Re-enter signing after the PDF is re-rendered
			"completed":   {},
		},
	}
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}
