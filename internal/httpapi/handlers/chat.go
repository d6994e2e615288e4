package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/threadline/stylist/internal/common"
)

type chatMessageReq struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message"`
	Channel string `json:"channel"`
}

// SendChatMessage is the main web/app inbound endpoint.
func (h *Handler) SendChatMessage(c *gin.Context) {
	var req chatMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Channel == "" {
		req.Channel = "web"
	}

	reply := h.Brain.ProcessMessage(c.Request.Context(), req.UserID, req.Message, req.Channel, nil)

	var sessionInfo gin.H
	if sess, ok := h.Sessions.Get(c.Request.Context(), req.UserID); ok {
		sessionInfo = gin.H{
			"channels_used":     sess.ChannelsUsed,
			"channel_switches":  sess.ChannelSwitches,
			"cart_count":        len(sess.Cart),
			"has_style_profile": sess.StyleProfile != nil,
		}
	}

	common.OK(c, gin.H{
		"response":     reply,
		"user_id":      req.UserID,
		"channel":      req.Channel,
		"session_info": sessionInfo,
	})
}

type sessionInfoReq struct {
	UserID string `json:"user_id" binding:"required"`
}

// GetSessionInfo reports cross-channel session state for a user.
func (h *Handler) GetSessionInfo(c *gin.Context) {
	var req sessionInfoReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, ok := h.Sessions.Get(c.Request.Context(), req.UserID)
	if !ok {
		common.OK(c, gin.H{
			"user_id":           req.UserID,
			"channels_used":     []string{},
			"channel_switches":  0,
			"cart_items":        0,
			"has_style_profile": false,
			"last_channel":      nil,
		})
		return
	}

	common.OK(c, gin.H{
		"user_id":           sess.UserID,
		"channels_used":     sess.ChannelsUsed,
		"channel_switches":  sess.ChannelSwitches,
		"cart_items":        len(sess.Cart),
		"has_style_profile": sess.StyleProfile != nil,
		"last_channel":      sess.LastChannel,
	})
}

// GetChatHistory returns recent turns across all channels, oldest first.
func (h *Handler) GetChatHistory(c *gin.Context) {
	userID := c.Param("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	msgs := h.Sessions.History(c.Request.Context(), userID, limit)
	common.OK(c, gin.H{
		"user_id":  userID,
		"messages": msgs,
		"count":    len(msgs),
	})
}

// ClearSession removes the session record outright. Idempotent: clearing an
// absent session still reports success.
func (h *Handler) ClearSession(c *gin.Context) {
	userID := c.Param("user_id")
	h.Sessions.Clear(c.Request.Context(), userID)
	common.OK(c, gin.H{"message": "session cleared", "user_id": userID})
}
