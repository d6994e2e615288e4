package handlers

import (
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/threadline/stylist/internal/common"
)

// AnalyzeProfile accepts a multipart selfie upload, derives a style profile,
// and persists it to the session when a user_id field is supplied.
func (h *Handler) AnalyzeProfile(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "image file required")
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(io.LimitReader(file, 10<<20))
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "failed to read image")
		return
	}

	profile := h.Vision.Analyze(imageBytes)

	if userID := c.Request.FormValue("user_id"); userID != "" {
		h.Sessions.UpdateStyleProfile(c.Request.Context(), userID, profile)
	}

	common.OK(c, profile)
}

type analyzeBase64Req struct {
	UserID      string `json:"user_id"`
	ImageBase64 string `json:"image_base64" binding:"required"`
}

// AnalyzeProfileBase64 serves web/mobile clients that send the image inline.
func (h *Handler) AnalyzeProfileBase64(c *gin.Context) {
	var req analyzeBase64Req
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid base64 image")
		return
	}

	profile := h.Vision.Analyze(imageBytes)

	if req.UserID != "" {
		h.Sessions.UpdateStyleProfile(c.Request.Context(), req.UserID, profile)
	}

	common.OK(c, profile)
}

// GetProfile returns the stored style profile. Unlike the mutating admin
// operations, an absent profile here is a genuine not-found.
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.Param("user_id")

	sess, ok := h.Sessions.Get(c.Request.Context(), userID)
	if !ok || sess.StyleProfile == nil {
		common.Fail(c, http.StatusNotFound, 40403, "style profile not found, upload a selfie first")
		return
	}

	common.OK(c, sess.StyleProfile)
}
