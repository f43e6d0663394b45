package workflows

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStatus means a stored or supplied status is not registered
	ErrUnknownStatus = errors.New("unknown status")
	// ErrIllegalTransition means the action is not valid from the current status
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrPreconditionUnmet means a consent, input or authority is missing
	ErrPreconditionUnmet = errors.New("precondition unmet")
	// ErrTerminalState means the record is verified or rejected
	ErrTerminalState = errors.New("terminal state")
)

// TransitionError describes a refused action
type TransitionError struct {
	Status Status
	Action Action
	Detail string
	Err    error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: cannot %s from %s", e.Err, e.Action, e.Status)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

func refuse(err error, s Status, a Action, detail string) error {
	return &TransitionError{Status: s, Action: a, Detail: detail, Err: err}
}

// Illegal returns an ErrIllegalTransition for action a in status s
func Illegal(s Status, a Action, detail string) error {
	return refuse(ErrIllegalTransition, s, a, detail)
}

// Unmet returns an ErrPreconditionUnmet for action a in status s
func Unmet(s Status, a Action, detail string) error {
	return refuse(ErrPreconditionUnmet, s, a, detail)
}

// Terminal returns an ErrTerminalState for action a in status s
func Terminal(s Status, a Action) error {
	return refuse(ErrTerminalState, s, a, "record is "+string(s)+" and accepts no further actions")
}
