// Package talentmatch suggests talent for a brand brief using a chat
// completion model.
package talentmatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured = errors.New("talent match is not configured")
	ErrRateLimited   = errors.New("too many talent match requests")
	ErrBadResponse   = errors.New("talent match returned an unexpected response")
)

type Input struct {
	AestheticPreferences string `json:"aestheticPreferences"`
	Budget               string `json:"budget"`
}

type Output struct {
	TalentSuggestions string `json:"talentSuggestions"`
}

// Generator is the AI collaborator behind the talent-match page.
type Generator interface {
	GenerateSuggestions(ctx context.Context, input Input) (Output, error)
}

const systemPrompt = "You are a talent scout. Reply with a JSON object that has a single string field \"talentSuggestions\"."

var promptTemplate = prompts.NewPromptTemplate(
	`You will provide a list of talent suggestions based on the aesthetic preferences and budget provided by the brand manager.

Aesthetic Preferences: {{.aestheticPreferences}}
Budget: {{.budget}}`,
	[]string{"aestheticPreferences", "budget"},
)

// Prompt renders the user prompt for input.
func Prompt(input Input) (string, error) {
	text, err := promptTemplate.Format(map[string]any{
		"aestheticPreferences": strings.TrimSpace(input.AestheticPreferences),
		"budget":               strings.TrimSpace(input.Budget),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return text, nil
}

type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  *zap.Logger
}

// OpenAI generates suggestions with a chat completion in JSON mode.
type OpenAI struct {
	client completer
	model  string
	logger *zap.Logger
}

func NewOpenAI(cfg Config) (*OpenAI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return newOpenAI(openai.NewClientWithConfig(clientConfig), cfg.Model, cfg.Logger), nil
}

func newOpenAI(client completer, model string, logger *zap.Logger) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAI{client: client, model: model, logger: logger}
}

func (o *OpenAI) GenerateSuggestions(ctx context.Context, input Input) (Output, error) {
	prompt, err := Prompt(input)
	if err != nil {
		return Output{}, err
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		o.logger.Error("talent match completion failed", zap.String("model", o.model), zap.Error(err))
		return Output{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Output{}, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	return parseOutput(resp.Choices[0].Message.Content)
}

// parseOutput checks the response shape: a JSON object with a non-empty
// talentSuggestions string.
func parseOutput(content string) (Output, error) {
	var output Output
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &output); err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if strings.TrimSpace(output.TalentSuggestions) == "" {
		return Output{}, fmt.Errorf("%w: empty talentSuggestions", ErrBadResponse)
	}
	return output, nil
}

// Limited wraps a Generator with a shared token-bucket limit.
type Limited struct {
	next    Generator
	limiter *rate.Limiter
}

func NewLimited(next Generator, perMinute int, burst int) *Limited {
	if perMinute < 1 {
		perMinute = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
	}
}

func (l *Limited) GenerateSuggestions(ctx context.Context, input Input) (Output, error) {
	if !l.limiter.Allow() {
		return Output{}, ErrRateLimited
	}
	return l.next.GenerateSuggestions(ctx, input)
}

// Unavailable is the Generator used when no API key is configured.
type Unavailable struct{}

func (Unavailable) GenerateSuggestions(context.Context, Input) (Output, error) {
	return Output{}, ErrNotConfigured
}
