package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/threadline/stylist/internal/common"
	"github.com/threadline/stylist/internal/httpapi/handlers"
	"github.com/threadline/stylist/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	// The web channel is a browser client on another origin.
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	r.Use(cors.New(corsCfg))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", func(c *gin.Context) {
		common.OK(c, gin.H{"pong": true})
	})

	// Chat (web/app channels)
	r.POST("/chat/message", h.SendChatMessage)
	r.POST("/chat/session", h.GetSessionInfo)
	r.GET("/chat/history/:user_id", h.GetChatHistory)

	// Style profile
	r.POST("/profile/analyze", h.AnalyzeProfile)
	r.POST("/profile/analyze-base64", h.AnalyzeProfileBase64)
	r.GET("/profile/:user_id", h.GetProfile)

	// WhatsApp gateway webhook
	r.GET("/whatsapp/webhook", h.VerifyWhatsAppWebhook)
	r.POST("/whatsapp/webhook", h.WhatsAppWebhook)

	// Admin surface (JWT required)
	r.POST("/admin/login", h.AdminLogin)
	adminGroup := r.Group("/")
	adminGroup.Use(middleware.AdminRequired(h.Cfg.JWTSecret))
	adminGroup.DELETE("/admin/sessions/:user_id", h.ClearSession)
	adminGroup.POST("/whatsapp/send", h.SendWhatsAppMessage)
	adminGroup.GET("/analytics/dashboard", h.GetDashboard)
	adminGroup.GET("/analytics/conversations", h.GetRecentConversations)
	adminGroup.GET("/analytics/channel-switches", h.GetChannelSwitches)

	return r
}
