package workflow

import (
	"errors"

	bookingRepo "pawhub/database/repository/booking"
	conversationRepo "pawhub/database/repository/conversation"
	reviewRepo "pawhub/database/repository/review"
	"pawhub/services/booking"
	"pawhub/utils"
)

var (
	errNotParticipant = utils.NewAppError(utils.KindForbidden, "not_participant", "You are not part of this booking")
	errCounterparty   = utils.NewAppError(utils.KindCounterpartyDeleted, string(utils.KindCounterpartyDeleted), "This user is no longer available")
	errStaleStatus    = utils.NewAppError(utils.KindTransition, "stale_status", "The booking changed, please refresh")
	errReviewExists   = utils.NewAppError(utils.KindTransition, "review_exists", "You already reviewed this booking")
	errNotCompleted   = utils.NewAppError(utils.KindTransition, "booking_not_completed", "Only completed bookings can be reviewed")
)

// classify turns store and state-machine errors into the shared error taxonomy.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return err
	}
	var te *booking.TransitionError
	if errors.As(err, &te) {
		return te.AsAppError()
	}
	switch {
	case errors.Is(err, bookingRepo.ErrNotFound), errors.Is(err, conversationRepo.ErrNotFound):
		return utils.WrapAppError(err, utils.KindNotFound, "not_found", what+" not found")
	case errors.Is(err, bookingRepo.ErrStatusConflict):
		return utils.WrapAppError(err, errStaleStatus.Kind, errStaleStatus.Code, errStaleStatus.Message)
	case errors.Is(err, reviewRepo.ErrDuplicate):
		return utils.WrapAppError(err, errReviewExists.Kind, errReviewExists.Code, errReviewExists.Message)
	}
	return utils.WrapAppError(err, utils.KindNetwork, "internal", "Please try again later")
}
