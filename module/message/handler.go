package message

import (
	"io"
	"net/http"

	"TripChat/middleware"
	"TripChat/middleware/security"
	"TripChat/module/message/service"
	"TripChat/tools/apiresp"
	"TripChat/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts the message API; the sidebar lives in the user module.
func (h *Handler) Routes(r *middleware.Router) {
	auth := middleware.RouteOpt{IsAuth: true}
	r.GET("/last-activities", h.LastActivities, auth)
	r.GET("/conversation/:partnerId", h.Conversation, auth)
	r.GET("/:partnerId", h.Conversation, auth)
	r.POST("/send/:receiverId", h.Send, auth)
	r.POST("/read/:partnerId", h.MarkRead, auth)
	r.DELETE("/delete/:messageId", h.Delete, auth)
}

func (h *Handler) Send(c *gin.Context) {
	var req service.SendReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apiresp.Fail(c, errs.ErrArgs.WrapMsg(err.Error()))
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), security.UserID(c), c.Param("receiverId"), req)
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.Created(c, msg)
	h.svc.Deliver(msg)
}

func (h *Handler) Delete(c *gin.Context) {
	msg, err := h.svc.Delete(c.Request.Context(), security.UserID(c), c.Param("messageId"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "message deleted", "messageId": msg.ID.Hex()})
	h.svc.AnnounceDeleted(msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkRead(c.Request.Context(), security.UserID(c), c.Param("partnerId"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "messages marked as read", "modified": n})
}

func (h *Handler) Conversation(c *gin.Context) {
	msgs, err := h.svc.Conversation(c.Request.Context(), security.UserID(c), c.Param("partnerId"))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, msgs)
}

func (h *Handler) LastActivities(c *gin.Context) {
	acts, err := h.svc.LastActivities(c.Request.Context(), security.UserID(c))
	if err != nil {
		apiresp.Fail(c, err)
		return
	}
	apiresp.OK(c, acts)
}
