// Package chat proxies the recycling assistant conversation to an
// OpenAI-compatible chat completion endpoint.
package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"ecorewards/internal/apperr"
	"ecorewards/internal/config"
)

const (
	MaxMessages      = 20
	MaxMessageLength = 2000

	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const systemPrompt = `You are the EcoRewards assistant. You help people recycle electronic waste responsibly.
Answer questions about which devices can be recycled, how to prepare them (backing up and wiping data, removing batteries),
where partner recycling centers accept e-waste, how points are earned for recycling and how they can be redeemed
for eco-friendly products in the shop. Keep answers short, friendly and practical. If a question is unrelated to
recycling, sustainability or the EcoRewards program, politely steer the conversation back.`

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Assistant struct {
	client  openai.Client
	model   string
	enabled bool
	log     *zap.Logger
}

func NewAssistant(cfg config.Chat, log *zap.Logger, opts ...option.RequestOption) *Assistant {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.Timeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.Timeout))
	}
	return &Assistant{
		client:  openai.NewClient(append(base, opts...)...),
		model:   cfg.Model,
		enabled: cfg.APIKey != "",
		log:     log,
	}
}

func validate(history []Message) error {
	if len(history) == 0 || len(history) > MaxMessages {
		return apperr.InvalidInput("messages must hold between 1 and 20 entries")
	}
	for _, m := range history {
		if m.Role != RoleUser && m.Role != RoleAssistant {
			return apperr.InvalidInput("message role must be user or assistant")
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			return apperr.InvalidInput("message content is required")
		}
		if utf8.RuneCountInString(content) > MaxMessageLength {
			return apperr.InvalidInput("message content must be at most 2000 characters")
		}
	}
	if history[len(history)-1].Role != RoleUser {
		return apperr.InvalidInput("last message must come from the user")
	}
	return nil
}

// Reply returns the assistant's next message for the conversation.
func (a *Assistant) Reply(ctx context.Context, history []Message) (string, error) {
	if err := validate(history); err != nil {
		return "", err
	}
	if !a.enabled {
		return "", apperr.Wrap(apperr.CodeExternalUnavailable, "chat assistant not configured", nil)
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	for _, m := range history {
		if m.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	start := time.Now()
	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(a.model),
		Messages: messages,
	})
	if err != nil {
		a.log.Error("chat completion failed", zap.String("model", a.model), zap.Error(err))
		return "", apperr.Wrap(apperr.CodeExternalUnavailable, "chat completion", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		a.log.Error("chat completion empty", zap.String("model", a.model))
		return "", apperr.ErrExternalUnavailable
	}

	a.log.Debug("chat completion", zap.Duration("elapsed", time.Since(start)))
	return completion.Choices[0].Message.Content, nil
}
