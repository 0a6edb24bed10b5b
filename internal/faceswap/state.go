package faceswap

import "fmt"

// State is a step of the submission state machine.
type State string

const (
	StateIdle               State = "idle"
	StateCheckingBackend    State = "checking_backend"
	StateValidatingSlots    State = "validating_slots"
	StateResolvingMultiface State = "resolving_multiface"
	StateValidatingFaceData State = "validating_face_data"
	StateBuildingPayload    State = "building_payload"
	StateSubmitted          State = "submitted"
)

// validTransitions maps from-state to allowed to-states
var validTransitions = map[State]map[State]bool{
	StateIdle: {
		StateCheckingBackend: true, // user pressed submit
	},
	StateCheckingBackend: {
		StateValidatingSlots: true, // backend idle
		StateIdle:            true, // busy or status check failed
	},
	StateValidatingSlots: {
		StateResolvingMultiface: true,
		StateIdle:               true, // media missing
	},
	StateResolvingMultiface: {
		StateValidatingFaceData: true,
		StateIdle:               true,
	},
	StateValidatingFaceData: {
		StateBuildingPayload: true,
		StateIdle:            true, // face selection missing
	},
	StateBuildingPayload: {
		StateSubmitted: true,
		StateIdle:      true,
	},
	StateSubmitted: {
		StateIdle: true, // panel reopened
	},
}

// ValidateTransition checks if a state transition is valid
func ValidateTransition(from, to State) error {
	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	if !allowedStates[to] {
		return fmt.Errorf("invalid transition from %s to %s", from, to)
	}

	return nil
}
