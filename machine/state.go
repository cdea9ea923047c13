package machine

import "fmt"

// State is the stage of a machine's work cycle.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StatePlannerPreparing
	StatePlannerReady
	StateExecuting
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StatePlannerPreparing:
		return "planner-preparing"
	case StatePlannerReady:
		return "planner-ready"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(text []byte) error {
	for st := StateUninitialized; st <= StateCompleted; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Initialized reports whether s has an open connection.
func (s State) Initialized() bool { return s != StateUninitialized }

// CheckState returns an ErrInvalidState error unless cur is one of allowed.
func CheckState(op string, cur State, allowed ...State) error {
	if cur == StateUninitialized {
		for _, a := range allowed {
			if a == StateUninitialized {
				return nil
			}
		}
		return fmt.Errorf("%s: %w", op, ErrNotInitialized)
	}
	for _, a := range allowed {
		if a == cur {
			return nil
		}
	}
	return fmt.Errorf("%s in state %s: %w", op, cur, ErrInvalidState)
}
