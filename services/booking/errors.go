package booking

import (
	"fmt"

	"pawhub/models"
	"pawhub/utils"
)

// Transition error codes.
const (
	CodeInvalidTransition = "invalid_transition"
	CodeActorNotAllowed   = "actor_not_allowed"
	CodeTerminalState     = "terminal_state"
	CodeNotYetEnded       = "booking_not_ended"
	CodeUnknownAction     = "unknown_action"
)

// TransitionError is an explicit rejection of an action in a given state.
type TransitionError struct {
	Code    string
	From    models.BookingStatus
	Action  Action
	Actor   Actor
	Message string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.cause())
}

func (e *TransitionError) cause() string {
	return fmt.Sprintf("cannot %s from %q as %s", e.Action, e.From, e.Actor)
}

// AsAppError converts the rejection into the error taxonomy shared with the UI. The AppError
// already carries code and message, so its text only adds the cause.
func (e *TransitionError) AsAppError() *utils.AppError {
	return utils.WrapAppError(transitionCause{e}, utils.KindTransition, e.Code, e.Message)
}

// transitionCause prints only the action, state and actor of a rejection and unwraps to it.
type transitionCause struct{ te *TransitionError }

func (c transitionCause) Error() string { return c.te.cause() }
func (c transitionCause) Unwrap() error { return c.te }

func newTransitionError(code string, from models.BookingStatus, action Action, actor Actor, msg string) *TransitionError {
	return &TransitionError{
		Code:    code,
		From:    from,
		Action:  action,
		Actor:   actor,
		Message: msg,
	}
}
