package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/threadline/stylist/internal/common"
	"github.com/threadline/stylist/internal/session"
	"github.com/threadline/stylist/internal/whatsapp"
)

const whatsappChannel = "whatsapp"

// VerifyWhatsAppWebhook answers the gateway's reachability probe.
func (h *Handler) VerifyWhatsAppWebhook(c *gin.Context) {
	c.String(http.StatusOK, "WhatsApp webhook active")
}

// WhatsAppWebhook handles inbound gateway messages. Image attachments run
// through profile extraction before the reply; plain text goes through the
// conversation flow. The gateway always gets a well-formed TwiML answer,
// even on internal failure.
func (h *Handler) WhatsAppWebhook(c *gin.Context) {
	from := c.PostForm("From")
	body := strings.TrimSpace(c.PostForm("Body"))
	numMedia, _ := strconv.Atoi(c.DefaultPostForm("NumMedia", "0"))
	mediaURL := c.PostForm("MediaUrl0")
	mediaType := c.PostForm("MediaContentType0")

	userID := strings.TrimPrefix(from, "whatsapp:")
	if userID == "" {
		c.Data(http.StatusOK, "application/xml",
			[]byte(whatsapp.TwiML("Oops! I had a small hiccup. Could you please try again?")))
		return
	}

	ctx := c.Request.Context()

	if numMedia > 0 && mediaURL != "" && strings.HasPrefix(mediaType, "image") {
		h.Logger.Info("processing image for profile analysis", "user_id", userID)

		media, err := h.WhatsApp.DownloadMedia(ctx, mediaURL)
		if err == nil {
			profile := h.Vision.Analyze(media)

			// Creation must precede the profile write: the profile update is
			// a no-op on an absent session.
			h.Sessions.AppendMessage(ctx, userID, "user", "[Sent a photo for analysis]", whatsappChannel)
			h.Sessions.UpdateStyleProfile(ctx, userID, profile)

			reply := formatProfileReply(profile)
			h.Sessions.AppendMessage(ctx, userID, "assistant", reply, whatsappChannel)

			c.Data(http.StatusOK, "application/xml", []byte(whatsapp.TwiML(reply)))
			return
		}
		h.Logger.Warn("media download failed, handling as text", "user_id", userID, "err", err)
	}

	reply := h.Brain.ProcessMessage(ctx, userID, body, whatsappChannel, nil)
	c.Data(http.StatusOK, "application/xml", []byte(whatsapp.TwiML(reply)))
}

type sendWhatsAppReq struct {
	ToNumber string `json:"to_number" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// SendWhatsAppMessage pushes an outbound message through the gateway.
func (h *Handler) SendWhatsAppMessage(c *gin.Context) {
	var req sendWhatsAppReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.WhatsApp.SendMessage(c.Request.Context(), req.ToNumber, req.Message); err != nil {
		h.Logger.Error("whatsapp send failed", "to", req.ToNumber, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to send message")
		return
	}
	common.OK(c, gin.H{"status": "sent", "to": req.ToNumber})
}

func formatProfileReply(p session.StyleProfile) string {
	return fmt.Sprintf(`Style analysis complete!

Your undertone: %s

Colors that suit you: %s

Colors to avoid: %s

Style type: %s

Now I can recommend outfits that will look amazing on you! What are you shopping for today?`,
		capitalize(p.Undertone),
		strings.Join(firstN(p.BestColors, 5), ", "),
		strings.Join(firstN(p.AvoidColors, 3), ", "),
		p.StylePersonality,
	)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
