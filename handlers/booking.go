package handlers

import (
	"net/http"

	"pawhub/middleware"
	"pawhub/models"
	"pawhub/services/booking"
	"pawhub/services/workflow"
	"pawhub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the booking workflow endpoints.
type BookingHandler struct {
	Service workflow.WorkflowService
}

func NewBookingHandler(svc workflow.WorkflowService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

// CreateBookingHandler drafts a new offer; the caller is the provider.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	b, err := h.Service.CreateBooking(c.Request.Context(), middleware.ViewerID(c), req)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), middleware.ViewerID(c), c.Param("id"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// UpdateTermsHandler replaces the offer's occurrences, pets and service type; provider only.
func (h *BookingHandler) UpdateTermsHandler(c *gin.Context) {
	var req models.UpdateTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	b, err := h.Service.UpdateTerms(c.Request.Context(), middleware.ViewerID(c), c.Param("id"), req)
	h.respond(c, "update_terms", b, err)
}

func (h *BookingHandler) ApproveHandler(c *gin.Context) {
	b, err := h.Service.Approve(c.Request.Context(), middleware.ViewerID(c), c.Param("id"))
	h.respond(c, "approve", b, err)
}

func (h *BookingHandler) RequestChangesHandler(c *gin.Context) {
	var body models.ChangeRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	b, err := h.Service.RequestChanges(c.Request.Context(), middleware.ViewerID(c), c.Param("id"), body.Message)
	h.respond(c, "request_changes", b, err)
}

func (h *BookingHandler) CompleteHandler(c *gin.Context) {
	b, err := h.Service.MarkCompleted(c.Request.Context(), middleware.ViewerID(c), c.Param("id"))
	h.respond(c, "mark_completed", b, err)
}

// ActionHandler runs submit_offer, send_for_approval, propose_edit, deny and cancel.
func (h *BookingHandler) ActionHandler(c *gin.Context) {
	var body models.ActionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	b, err := h.Service.ApplyAction(c.Request.Context(), middleware.ViewerID(c), c.Param("id"), booking.Action(body.Action))
	h.respond(c, body.Action, b, err)
}

func (h *BookingHandler) ReviewHandler(c *gin.Context) {
	var sub models.ReviewSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	if sub.BookingID == "" {
		sub.BookingID = c.Param("id")
	}
	if sub.BookingID != c.Param("id") {
		utils.JSONAppError(c, utils.NewValidationError("invalid_booking_id", "booking id does not match the path"))
		return
	}
	r, err := h.Service.SubmitReview(c.Request.Context(), middleware.ViewerID(c), sub)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *BookingHandler) IncompleteBookingsHandler(c *gin.Context) {
	list, err := h.Service.IncompleteBookings(c.Request.Context(), middleware.ViewerID(c), c.Param("id"))
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *BookingHandler) respond(c *gin.Context, action string, b *models.Booking, err error) {
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	getLogger(c).Debug("booking action applied",
		zap.String("action", action),
		zap.String("bookingID", b.ID),
		zap.String("status", string(b.Status)))
	c.JSON(http.StatusOK, b)
}
