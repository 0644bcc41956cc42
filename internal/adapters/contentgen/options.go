package contentgen

import "time"

// Default generator configuration constants.
const (
	defaultModel     = "gpt-4o-mini"
	defaultTimeout   = 4 * time.Second
	defaultMaxTokens = 400
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithModel sets the chat model name.
func WithModel(name string) Option {
	return func(g *Generator) {
		if name != "" {
			g.model = name
		}
	}
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithChatService injects the completion backend, for tests.
func WithChatService(c ChatService) Option {
	return func(g *Generator) {
		if c != nil {
			g.chat = c
		}
	}
}
