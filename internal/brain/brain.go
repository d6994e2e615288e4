// Package brain sequences one inbound conversation turn end to end:
// session bookkeeping, context assembly, completion, history persistence.
package brain

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/threadline/stylist/internal/ai"
	"github.com/threadline/stylist/internal/session"
)

// FallbackReply is the fixed user-safe text returned when the completion
// service fails or times out. No turns are persisted in that case.
const FallbackReply = "I apologize, but I'm having a moment. Could you please try again?"

type Brain struct {
	sessions *session.Manager
	provider ai.Provider
	logger   *slog.Logger

	window      int
	maxTokens   int
	temperature float64
	timeout     time.Duration
}

func New(sessions *session.Manager, provider ai.Provider, logger *slog.Logger,
	window, maxTokens int, temperature float64, timeout time.Duration) *Brain {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 || window > 50 {
		window = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Brain{
		sessions:    sessions,
		provider:    provider,
		logger:      logger,
		window:      window,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}
}

// ProcessMessage handles one inbound message and returns the assistant
// reply. The step order is load-bearing: channel bookkeeping must land
// before the history read so the transition note sees pre-turn state, and
// both turns are appended only after generation succeeds so a failed
// completion leaves no half-exchange behind.
func (b *Brain) ProcessMessage(ctx context.Context, userID, text, channel string, fresh *session.StyleProfile) string {
	if strings.TrimSpace(text) == "" {
		text = "Hi"
	}

	sess := b.sessions.GetOrCreate(ctx, userID, channel)
	history := b.sessions.History(ctx, userID, b.window)
	contextBlock := BuildContext(sess, channel, fresh)

	msgs := make([]ai.Message, 0, len(history)+1)
	for _, m := range history {
		msgs = append(msgs, ai.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, ai.Message{Role: "user", Content: text})

	gctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	reply, err := b.provider.Generate(gctx, msgs, ai.Options{
		SystemPrompt: systemPrompt + contextBlock,
		MaxTokens:    b.maxTokens,
		Temperature:  b.temperature,
	})
	if err != nil {
		b.logger.Error("completion failed", "user_id", userID, "channel", channel, "err", err)
		return FallbackReply
	}

	b.sessions.AppendMessage(ctx, userID, "user", text, channel)
	b.sessions.AppendMessage(ctx, userID, "assistant", reply, channel)

	b.logger.Info("message processed",
		"user_id", userID, "channel", channel,
		"message_len", len(text), "reply_len", len(reply))
	return reply
}
