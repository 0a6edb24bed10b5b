package translate

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiTranslator struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey string) (*GeminiTranslator, error) {
	return newGeminiWithConfig(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func newGeminiWithConfig(ctx context.Context, cfg *genai.ClientConfig) (*GeminiTranslator, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiTranslator{client: client}, nil
}

func (t *GeminiTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || SameLanguage(sourceLang, targetLang) {
		return text, nil
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildPrompt(targetLang) + "\n\n" + text},
			},
		},
	}

	result, err := t.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return text, fmt.Errorf("gemini translate: %w", err)
	}

	translated := strings.TrimSpace(result.Text())
	if translated == "" {
		return text, nil
	}
	return translated, nil
}
