package delivery

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition signals an operation that the delivery's current
// lifecycle state does not allow.
var ErrInvalidTransition = errors.New("delivery: invalid lifecycle transition")

// State is the combined lifecycle position of a delivery, derived from
// (Status, AcceptanceStatus).
type State string

const (
	StatePending   State = "pending"
	StateAccepted  State = "accepted"
	StatePickedUp  State = "picked_up"
	StateCompleted State = "completed"
	StateDeclined  State = "declined"
)

// Action is one of the driver-initiated lifecycle operations.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionPickup   Action = "pickup"
	ActionComplete Action = "complete"
)

// transitions is the authoritative lifecycle definition: each action is
// valid from exactly one state.
var transitions = map[Action]struct {
	From State
	To   State
}{
	ActionAccept:   {From: StatePending, To: StateAccepted},
	ActionDecline:  {From: StatePending, To: StateDeclined},
	ActionPickup:   {From: StateAccepted, To: StatePickedUp},
	ActionComplete: {From: StatePickedUp, To: StateCompleted},
}

// StateOf derives the lifecycle state from the delivery's status pair.
// Declined wins regardless of status; a pending acceptance pins the state
// to pending (the server only reports pending while status is assigned).
func StateOf(d Delivery) State {
	switch d.AcceptanceStatus {
	case AcceptanceDeclined:
		return StateDeclined
	case AcceptancePending:
		return StatePending
	}
	switch d.Status {
	case StatusPickedUp:
		return StatePickedUp
	case StatusCompleted:
		return StateCompleted
	default:
		return StateAccepted
	}
}

// CanApply reports whether action is valid from the delivery's current
// state. The server stays authoritative: a server rejection of an action
// that passed here still surfaces normally.
func CanApply(action Action, d Delivery) error {
	transition, ok := transitions[action]
	if !ok {
		return fmt.Errorf("delivery: unknown action %q", action)
	}
	current := StateOf(d)
	if current != transition.From {
		return fmt.Errorf("%w: %s is not allowed from %s", ErrInvalidTransition, action, current)
	}
	return nil
}

// NextActions returns the actions valid from the delivery's current
// state, for rendering action buttons.
func NextActions(d Delivery) []Action {
	current := StateOf(d)
	var actions []Action
	for _, action := range []Action{ActionAccept, ActionDecline, ActionPickup, ActionComplete} {
		if transitions[action].From == current {
			actions = append(actions, action)
		}
	}
	return actions
}

// Partition splits an assigned-status list into its pending and accepted
// sub-views. Every delivery lands in exactly one bucket; declined ones
// are dropped (they are leaving this driver's visible set).
func Partition(deliveries []Delivery) (pending, accepted []Delivery) {
	for _, d := range deliveries {
		switch d.AcceptanceStatus {
		case AcceptancePending:
			pending = append(pending, d)
		case AcceptanceAccepted:
			accepted = append(accepted, d)
		}
	}
	return pending, accepted
}
