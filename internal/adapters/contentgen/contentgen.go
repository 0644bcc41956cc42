// Package contentgen produces explanatory content adapted to the learner's
// state, through an OpenAI chat model with a templated fallback.
package contentgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/okian/attune/internal/domain/model"
	"github.com/okian/attune/internal/domain/recommend"
	"github.com/okian/attune/pkg/logger"
	"github.com/okian/attune/pkg/metrics"
)

// Content sources.
const (
	SourceOpenAI   = "openai"
	SourceFallback = "fallback"
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.New("empty completion")

// ChatService is the minimal completion surface the generator needs.
type ChatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

type openAIChat struct {
	client openai.Client
}

func (c *openAIChat) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Request describes what to generate.
type Request struct {
	SubjectID  string
	Topic      string
	Profile    map[string]string
	State      model.CognitiveState
	Adaptation recommend.Adaptation
}

// Generator calls the chat model and falls back to templates on any
// failure. A Generator without a backend always uses templates.
type Generator struct {
	chat      ChatService
	model     string
	timeout   time.Duration
	maxTokens int
}

// New creates a generator. An empty apiKey disables the remote backend
// unless WithChatService is given.
func New(apiKey, baseURL string, opts ...Option) *Generator {
	g := &Generator{model: defaultModel, timeout: defaultTimeout, maxTokens: defaultMaxTokens}
	if apiKey != "" {
		ropts := []option.RequestOption{option.WithAPIKey(apiKey)}
		if baseURL != "" {
			ropts = append(ropts, option.WithBaseURL(baseURL))
		}
		g.chat = &openAIChat{client: openai.NewClient(ropts...)}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enabled reports whether a remote backend is configured.
func (g *Generator) Enabled() bool { return g.chat != nil }

// Generate never fails: remote errors produce fallback content.
func (g *Generator) Generate(ctx context.Context, req Request) (model.Content, error) {
	content := model.Content{
		Topic:          req.Topic,
		AdaptationTags: req.Adaptation.Tags(),
		Difficulty:     req.Adaptation.DifficultyLevel(),
		Format:         req.Adaptation.Format,
		Pacing:         req.Adaptation.Pacing,
	}
	if g.chat != nil {
		text, err := g.remote(ctx, req)
		if err == nil {
			content.Text = text
			content.Source = SourceOpenAI
			metrics.RecordContentRequest(SourceOpenAI)
			return content, nil
		}
		if ctx.Err() != nil {
			return model.Content{}, fmt.Errorf("generate content: %w", ctx.Err())
		}
		logger.Get().Warn(ctx, "content generation fell back to template",
			logger.String("subject", req.SubjectID),
			logger.String("topic", req.Topic),
			logger.Error(err))
	}
	content.Text = Template(req)
	content.Source = SourceFallback
	metrics.RecordContentRequest(SourceFallback)
	return content, nil
}

func (g *Generator) remote(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.chat.Create(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt(req)),
		},
		MaxTokens:   openai.Int(int64(g.maxTokens)),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

const systemPrompt = "You are a tutor. Write a short explanation of the topic adapted to the learner state and adaptation tags you are given. Plain text, no headings."

func userPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Learner state: %s\n", req.State)
	fmt.Fprintf(&b, "Adaptations: %s\n", strings.Join(req.Adaptation.Tags(), ", "))
	for k, v := range req.Profile {
		fmt.Fprintf(&b, "Profile %s: %s\n", k, v)
	}
	return b.String()
}

// Template renders deterministic fallback text for req.
func Template(req Request) string {
	topic := req.Topic
	if topic == "" {
		topic = "the current topic"
	}
	var lead string
	switch req.State {
	case model.StateStruggling:
		lead = fmt.Sprintf("Let's slow down and revisit %s step by step, starting from the basics.", topic)
	case model.StateDisengaged:
		lead = fmt.Sprintf("Try this quick hands-on exercise on %s to get back into it.", topic)
	case model.StateOptimal:
		lead = fmt.Sprintf("You're doing well. Here is a harder problem on %s.", topic)
	default:
		lead = fmt.Sprintf("Here is the next part of %s, with a short check at the end.", topic)
	}
	switch req.Adaptation.Format {
	case model.FormatVisual:
		lead += " Follow along with the diagram."
	case model.FormatInteractive:
		lead += " Answer each prompt before moving on."
	}
	if req.Adaptation.Break {
		lead += " Take a short break first."
	}
	return lead
}
