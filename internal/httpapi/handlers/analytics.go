package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/threadline/stylist/internal/auth"
	"github.com/threadline/stylist/internal/common"
)

type adminLoginReq struct {
	Password string `json:"password" binding:"required"`
}

// AdminLogin exchanges the admin password for a bearer token guarding the
// analytics and session-administration surface.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req adminLoginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if h.Cfg.AdminPasswordHash == "" || !auth.CheckPassword(h.Cfg.AdminPasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40102, "invalid credentials")
		return
	}

	token, err := auth.SignAdminToken(h.Cfg.JWTSecret, 12*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token})
}

// GetDashboard serves the admin dashboard metrics.
func (h *Handler) GetDashboard(c *gin.Context) {
	d, err := h.Analytics.Dashboard(c.Request.Context())
	if err != nil {
		h.Logger.Error("dashboard query failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to load dashboard")
		return
	}
	common.OK(c, d)
}

// GetRecentConversations lists the newest logged turns for monitoring.
func (h *Handler) GetRecentConversations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	convs, err := h.Analytics.RecentConversations(c.Request.Context(), limit)
	if err != nil {
		h.Logger.Error("conversations query failed", "err", err)
		// The log is best-effort; an unreachable log reads as empty.
		common.OK(c, gin.H{"conversations": []any{}, "count": 0})
		return
	}
	common.OK(c, gin.H{"conversations": convs, "count": len(convs)})
}

// GetChannelSwitches reports how users move between channels.
func (h *Handler) GetChannelSwitches(c *gin.Context) {
	stats, err := h.Analytics.ChannelSwitches(c.Request.Context())
	if err != nil {
		h.Logger.Error("channel switch scan failed", "err", err)
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to load switch stats")
		return
	}
	common.OK(c, stats)
}
