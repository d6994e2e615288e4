package handlers

import (
	"log/slog"

	"github.com/threadline/stylist/internal/analytics"
	"github.com/threadline/stylist/internal/brain"
	"github.com/threadline/stylist/internal/config"
	"github.com/threadline/stylist/internal/session"
	"github.com/threadline/stylist/internal/vision"
	"github.com/threadline/stylist/internal/whatsapp"
)

// Handler bundles the collaborators the HTTP surface needs. Everything is
// constructed once in main and injected; there are no package-level
// singletons.
type Handler struct {
	Cfg       config.Config
	Logger    *slog.Logger
	Sessions  *session.Manager
	Brain     *brain.Brain
	Vision    *vision.Analyzer
	WhatsApp  *whatsapp.Client
	Analytics *analytics.Service
}

func NewHandler(cfg config.Config, logger *slog.Logger, sessions *session.Manager,
	b *brain.Brain, v *vision.Analyzer, wa *whatsapp.Client, an *analytics.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Cfg:       cfg,
		Logger:    logger,
		Sessions:  sessions,
		Brain:     b,
		Vision:    v,
		WhatsApp:  wa,
		Analytics: an,
	}
}
