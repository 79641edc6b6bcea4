// Package fsm models the bridge request loop as an explicit state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateAwaitingRequest State = "awaiting_request"
	StateProcessing      State = "processing"
	StateStopped         State = "stopped"
)

const (
	EventRequest     Event = "request"
	EventRespond     Event = "respond"
	EventEndOfStream Event = "end_of_stream"
)

// Transition returns the state reached by applying event to current.
// Stopped is terminal.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateAwaitingRequest:
		switch event {
		case EventRequest:
			return StateProcessing, nil
		case EventEndOfStream:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateProcessing:
		switch event {
		case EventRespond:
			return StateAwaitingRequest, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
