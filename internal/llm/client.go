package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/starford/taskwise/internal/apperr"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultTimeout       = 60 * time.Second
)

// ChatModel is the single-turn completion surface the gateway needs.
// Every eino chat model satisfies it.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// NewChatModel builds the configured driver in JSON response mode.
func NewChatModel(ctx context.Context, cfg Config, apiKey string) (model.BaseChatModel, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverOpenAI:
		return newOpenAI(ctx, cfg, apiKey)
	case DriverOllama:
		return newOllama(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown llm driver %q: %w", cfg.Driver, apperr.ErrInvalid)
	}
}

func newOpenAI(ctx context.Context, cfg Config, apiKey string) (model.BaseChatModel, error) {
	modelConfig := &einoopenai.ChatModelConfig{
		APIKey:      apiKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     timeoutOf(cfg),
	}
	modelConfig.ResponseFormat = &einoopenai.ChatCompletionResponseFormat{
		Type: einoopenai.ChatCompletionResponseFormatTypeJSONObject,
	}
	if cfg.BaseURL != "" {
		modelConfig.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		modelConfig.MaxCompletionTokens = &maxTokens
	}
	return einoopenai.NewChatModel(ctx, modelConfig)
}

func newOllama(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	opts := &einoollama.Options{}
	if cfg.MaxTokens > 0 {
		opts.NumPredict = cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		opts.Temperature = *cfg.Temperature
	}

	return einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: baseURL,
		Model:   cfg.Model,
		Timeout: timeoutOf(cfg),
		Format:  json.RawMessage(`"json"`),
		Options: opts,
	})
}

func timeoutOf(cfg Config) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return defaultTimeout
}

// Gateway sends one prompt with its task context to the chat model.
type Gateway struct {
	model   ChatModel
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway wraps m. A zero timeout uses the default of one minute.
func NewGateway(m ChatModel, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Gateway{model: m, timeout: timeout, logger: logger}
}

// Invoke asks the model to translate prompt into commands. Transport failures
// are returned as *apperr.TransportError; any content the model returns is
// parsed leniently.
func (g *Gateway) Invoke(ctx context.Context, prompt string, c Context) (ParsedResponse, error) {
	system, err := BuildSystemPrompt(c)
	if err != nil {
		return ParsedResponse{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	msg, err := g.model.Generate(callCtx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	})
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ParsedResponse{}, &apperr.TransportError{Kind: KindTimeout, Err: err}
		}
		return ParsedResponse{}, HandleError(err)
	}

	content := ""
	if msg != nil {
		content = msg.Content
	}
	g.logger.Debug("model responded",
		slog.String("duration", time.Since(start).String()),
		slog.Int("content_length", len(content)))

	return ParseResponse(content), nil
}

// Transport failure kinds.
const (
	KindAuthentication = "authentication"
	KindRateLimit      = "rate_limit"
	KindContextLength  = "context_too_long"
	KindModelNotFound  = "model_not_found"
	KindConnection     = "connection"
	KindTimeout        = "timeout"
)

// HandleError classifies a chat model error into a transport error.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())

	kind := ""
	switch {
	case containsAny(errStr, "401", "403", "unauthorized", "invalid api key", "api key", "forbidden"):
		kind = KindAuthentication
	case containsAny(errStr, "429", "rate limit", "quota", "too many requests"):
		kind = KindRateLimit
	case containsAny(errStr, "context length", "too many tokens", "max tokens", "token limit"):
		kind = KindContextLength
	case containsAny(errStr, "model not found", "404", "not found"):
		kind = KindModelNotFound
	case containsAny(errStr, "deadline exceeded", "timeout"):
		kind = KindTimeout
	case containsAny(errStr, "connection", "eof", "dial", "refused"):
		kind = KindConnection
	}
	return &apperr.TransportError{Kind: kind, Err: err}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
