package ai

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Provider produces one assistant reply for a role-tagged conversation. Any
// transport or provider failure comes back as a plain error; callers decide
// the user-visible fallback.
type Provider interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
}
