package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openAIModel = openai.ChatModelGPT4_1Mini

type OpenAITranslator struct {
	client *openai.Client
}

// NewOpenAI creates an OpenAI backed translator. Extra options are passed to the client
// (tests point it at a local server with option.WithBaseURL).
func NewOpenAI(apiKey string, opts ...option.RequestOption) *OpenAITranslator {
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAITranslator{client: &client}
}

func (t *OpenAITranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || SameLanguage(sourceLang, targetLang) {
		return text, nil
	}

	resp, err := t.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openAIModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(buildPrompt(targetLang)),
			openai.UserMessage(text),
		},
		MaxTokens: openai.Int(200),
	})
	if err != nil {
		return text, fmt.Errorf("openai translate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return text, nil
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return text, nil
	}
	return translated, nil
}
