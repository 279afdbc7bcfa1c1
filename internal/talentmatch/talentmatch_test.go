package talentmatch

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeCompleter struct {
	content string
	err     error
	request openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: f.content}},
		},
	}, nil
}

var brief = Input{
	AestheticPreferences: "Bold streetwear, warm film tones",
	Budget:               "$5,000",
}

func TestPromptIncludesBrief(t *testing.T) {
	prompt, err := Prompt(brief)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Aesthetic Preferences: Bold streetwear, warm film tones")
	assert.Contains(t, prompt, "Budget: $5,000")
}

func TestGenerateSuggestions(t *testing.T) {
	completer := &fakeCompleter{content: `{"talentSuggestions":"Aisha Khan for runway, David Ochieng for murals"}`}
	generator := newOpenAI(completer, "", zaptest.NewLogger(t))

	output, err := generator.GenerateSuggestions(context.Background(), brief)
	require.NoError(t, err)
	assert.Equal(t, "Aisha Khan for runway, David Ochieng for murals", output.TalentSuggestions)

	assert.Equal(t, openai.GPT4oMini, completer.request.Model)
	require.Len(t, completer.request.Messages, 2)
	assert.Contains(t, completer.request.Messages[1].Content, "$5,000")
	require.NotNil(t, completer.request.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, completer.request.ResponseFormat.Type)
}

func TestGenerateSuggestionsRejectsBadShapes(t *testing.T) {
	for name, content := range map[string]string{
		"not json":      "Here are some ideas",
		"missing field": `{"suggestions":"x"}`,
		"blank field":   `{"talentSuggestions":"   "}`,
	} {
		t.Run(name, func(t *testing.T) {
			generator := newOpenAI(&fakeCompleter{content: content}, "gpt-4o", nil)
			_, err := generator.GenerateSuggestions(context.Background(), brief)
			assert.ErrorIs(t, err, ErrBadResponse)
		})
	}
}

func TestGenerateSuggestionsWrapsTransportErrors(t *testing.T) {
	boom := errors.New("connection reset")
	generator := newOpenAI(&fakeCompleter{err: boom}, "gpt-4o", nil)

	_, err := generator.GenerateSuggestions(context.Background(), brief)
	assert.ErrorIs(t, err, boom)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = Unavailable{}.GenerateSuggestions(context.Background(), brief)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

type countingGenerator struct {
	calls int
}

func (c *countingGenerator) GenerateSuggestions(context.Context, Input) (Output, error) {
	c.calls++
	return Output{TalentSuggestions: "ok"}, nil
}

func TestLimitedRejectsBursts(t *testing.T) {
	next := &countingGenerator{}
	limited := NewLimited(next, 1, 2)

	for range 2 {
		_, err := limited.GenerateSuggestions(context.Background(), brief)
		require.NoError(t, err)
	}
	_, err := limited.GenerateSuggestions(context.Background(), brief)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, next.calls)
}
