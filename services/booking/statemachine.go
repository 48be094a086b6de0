// File: services/booking/statemachine.go
package booking

import (
	"time"

	"pawhub/models"
)

// Actor is the side of the booking performing an action.
type Actor string

const (
	ActorProvider Actor = "provider"
	ActorClient   Actor = "client"
)

// Action is a user-facing step in the approval workflow.
type Action string

const (
	ActionSubmitOffer     Action = "submit_offer"
	ActionSendForApproval Action = "send_for_approval"
	ActionApprove         Action = "approve"
	ActionRequestChanges  Action = "request_changes"
	ActionProposeEdit     Action = "propose_edit"
	ActionMarkCompleted   Action = "mark_completed"
	ActionDeny            Action = "deny"
	ActionCancel          Action = "cancel"
)

// AllActions lists every action the machine knows.
var AllActions = []Action{
	ActionSubmitOffer,
	ActionSendForApproval,
	ActionApprove,
	ActionRequestChanges,
	ActionProposeEdit,
	ActionMarkCompleted,
	ActionDeny,
	ActionCancel,
}

// TransitionContext carries the facts some transitions are guarded on.
type TransitionContext struct {
	Now                 time.Time
	LatestOccurrenceEnd time.Time
}

type rule struct {
	to     models.BookingStatus
	actors []Actor
}

var bothActors = []Actor{ActorProvider, ActorClient}

var transitions = map[models.BookingStatus]map[Action]rule{
	models.StatusDraft: {
		ActionSubmitOffer: {to: models.StatusPendingInitialProviderChanges, actors: []Actor{ActorProvider}},
	},
	models.StatusPendingInitialProviderChanges: {
		ActionSendForApproval: {to: models.StatusPendingClientApproval, actors: []Actor{ActorProvider}},
	},
	models.StatusPendingProviderChanges: {
		ActionSendForApproval: {to: models.StatusPendingClientApproval, actors: []Actor{ActorProvider}},
	},
	models.StatusPendingClientApproval: {
		ActionApprove:        {to: models.StatusConfirmed, actors: []Actor{ActorClient}},
		ActionRequestChanges: {to: models.StatusPendingProviderChanges, actors: []Actor{ActorClient}},
	},
	models.StatusConfirmed: {
		ActionProposeEdit:   {to: models.StatusConfirmedPendingProviderChanges, actors: bothActors},
		ActionMarkCompleted: {to: models.StatusCompleted, actors: []Actor{ActorProvider}},
	},
	models.StatusConfirmedPendingProviderChanges: {
		ActionSendForApproval: {to: models.StatusConfirmedPendingClientApproval, actors: []Actor{ActorProvider}},
	},
	models.StatusConfirmedPendingClientApproval: {
		ActionApprove:        {to: models.StatusConfirmed, actors: []Actor{ActorClient}},
		ActionRequestChanges: {to: models.StatusConfirmedPendingProviderChanges, actors: []Actor{ActorClient}},
	},
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(s models.BookingStatus) bool {
	switch s {
	case models.StatusCompleted, models.StatusDenied, models.StatusCancelled:
		return true
	}
	return false
}

// IsConfirmed is true for Confirmed and both Confirmed* edit states.
func IsConfirmed(s models.BookingStatus) bool {
	switch s {
	case models.StatusConfirmed, models.StatusConfirmedPendingProviderChanges, models.StatusConfirmedPendingClientApproval:
		return true
	}
	return false
}

// IsKnown reports whether s is one of the defined statuses.
func IsKnown(s models.BookingStatus) bool {
	for _, known := range models.AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// EditableByProvider reports whether the provider may still change the offer.
func EditableByProvider(s models.BookingStatus) bool {
	switch s {
	case models.StatusDraft,
		models.StatusPendingInitialProviderChanges,
		models.StatusPendingProviderChanges,
		models.StatusConfirmedPendingProviderChanges,
		models.StatusConfirmed:
		return true
	}
	return false
}

// Transition returns the state reached by actor performing action from the given state, or a
// *TransitionError explaining why the action is rejected.
func Transition(from models.BookingStatus, action Action, actor Actor, tc TransitionContext) (models.BookingStatus, error) {
	if !isKnownAction(action) {
		return from, newTransitionError(CodeUnknownAction, from, action, actor, "unknown action")
	}
	if IsTerminal(from) {
		return from, newTransitionError(CodeTerminalState, from, action, actor, "booking is closed")
	}

	// Deny and cancel are available from every active state to either side.
	if action == ActionDeny || action == ActionCancel {
		if !IsKnown(from) {
			return from, newTransitionError(CodeInvalidTransition, from, action, actor, "unknown booking status")
		}
		if !hasActor(bothActors, actor) {
			return from, newTransitionError(CodeActorNotAllowed, from, action, actor, "only a participant can do this")
		}
		if action == ActionDeny {
			return models.StatusDenied, nil
		}
		return models.StatusCancelled, nil
	}

	r, ok := transitions[from][action]
	if !ok {
		return from, newTransitionError(CodeInvalidTransition, from, action, actor, "action not available in this state")
	}
	if !hasActor(r.actors, actor) {
		return from, newTransitionError(CodeActorNotAllowed, from, action, actor, "only the other participant can do this")
	}
	if action == ActionMarkCompleted {
		end := tc.LatestOccurrenceEnd
		if end.IsZero() || !tc.Now.After(end) {
			return from, newTransitionError(CodeNotYetEnded, from, action, actor, "booking can be completed after its last service date")
		}
	}
	return r.to, nil
}

// Can reports whether Transition would succeed.
func Can(from models.BookingStatus, action Action, actor Actor, tc TransitionContext) bool {
	_, err := Transition(from, action, actor, tc)
	return err == nil
}

// Allowed lists the actions actor may take from the given state.
func Allowed(from models.BookingStatus, actor Actor, tc TransitionContext) []Action {
	var out []Action
	for _, a := range AllActions {
		if Can(from, a, actor, tc) {
			out = append(out, a)
		}
	}
	return out
}

func isKnownAction(a Action) bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

func hasActor(actors []Actor, a Actor) bool {
	for _, x := range actors {
		if x == a {
			return true
		}
	}
	return false
}

// ActorFor resolves which side of the booking userID is on.
func ActorFor(b *models.Booking, userID string) (Actor, bool) {
	switch {
	case b == nil || userID == "":
		return "", false
	case userID == b.ProviderID:
		return ActorProvider, true
	case userID == b.ClientID:
		return ActorClient, true
	}
	return "", false
}

// ContextFor builds the transition guard facts for b at now.
func ContextFor(b *models.Booking, now time.Time) TransitionContext {
	return TransitionContext{Now: now, LatestOccurrenceEnd: b.LatestOccurrenceEnd()}
}
