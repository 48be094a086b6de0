package handlers

import (
	"net/http"
	"strconv"

	"pawhub/middleware"
	"pawhub/models"
	"pawhub/services/workflow"
	"pawhub/utils"

	"github.com/gin-gonic/gin"
)

// MessageHandler serves conversations, their history and participant profiles.
type MessageHandler struct {
	Service workflow.MessageService
}

func NewMessageHandler(svc workflow.MessageService) *MessageHandler {
	return &MessageHandler{Service: svc}
}

func (h *MessageHandler) CreateConversationHandler(c *gin.Context) {
	var req models.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	conv, err := h.Service.CreateConversation(c.Request.Context(), middleware.ViewerID(c), req)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// ListMessagesHandler answers ?page=&limit= with one page, newest first.
func (h *MessageHandler) ListMessagesHandler(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		utils.JSONAppError(c, utils.NewValidationError("invalid_page", "page must be a positive number"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		utils.JSONAppError(c, utils.NewValidationError("invalid_limit", "limit must be a positive number"))
		return
	}
	res, err := h.Service.ListMessages(c.Request.Context(), middleware.ViewerID(c), c.Param("id"), page, limit)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *MessageHandler) SendMessageHandler(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	msg, err := h.Service.SendMessage(c.Request.Context(), middleware.ViewerID(c), c.Param("id"), req)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) SaveProfileHandler(c *gin.Context) {
	var req models.ParticipantProfile
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	p, err := h.Service.SaveProfile(c.Request.Context(), middleware.ViewerID(c), req)
	if err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *MessageHandler) DeleteAccountHandler(c *gin.Context) {
	if err := h.Service.DeleteAccount(c.Request.Context(), middleware.ViewerID(c)); err != nil {
		utils.JSONAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
