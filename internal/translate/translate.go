// Package translate localizes user facing status messages.
package translate

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/kozaktomas/faceswap/internal/config"
)

//go:embed prompts/translate.txt
var translatePrompt string

// AutoDetect as the source language lets the provider detect it.
const AutoDetect = "auto"

// Translator turns text into the target language.
// On failure implementations return the original text together with the error,
// so callers can always display something.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Passthrough returns text unchanged. Used offline and when no provider is configured.
type Passthrough struct{}

func (Passthrough) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// New builds the translator selected by cfg, wrapped in a cache.
// An unknown provider is an error even when translation would be disabled.
func New(ctx context.Context, cfg config.TranslateConfig) (Translator, error) {
	switch cfg.Provider {
	case "", "none", "openai", "gemini", "ollama":
	default:
		return nil, fmt.Errorf("unknown translate provider: %s", cfg.Provider)
	}
	if !cfg.Enabled() {
		return Passthrough{}, nil
	}

	switch cfg.Provider {
	case "openai":
		return NewCached(NewOpenAI(cfg.OpenAIToken)), nil
	case "gemini":
		g, err := NewGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return NewCached(g), nil
	default:
		return NewCached(NewOllama(cfg.OllamaURL, cfg.OllamaModel)), nil
	}
}

// SameLanguage reports whether translating from source to target would be a no-op.
func SameLanguage(sourceLang, targetLang string) bool {
	if sourceLang == AutoDetect || sourceLang == "" {
		return false
	}
	src, err1 := language.Parse(sourceLang)
	dst, err2 := language.Parse(targetLang)
	if err1 != nil || err2 != nil {
		return strings.EqualFold(sourceLang, targetLang)
	}
	srcBase, _ := src.Base()
	dstBase, _ := dst.Base()
	return srcBase == dstBase
}

// LanguageName returns the English name of a BCP 47 tag for use in prompts
// (e.g., "pt-BR" -> "Brazilian Portuguese"). Unknown tags are returned as given.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}

func buildPrompt(targetLang string) string {
	return strings.ReplaceAll(translatePrompt, "{{target}}", LanguageName(targetLang))
}

// Cached memoizes successful translations per target language.
type Cached struct {
	next  Translator
	mu    sync.RWMutex
	cache map[string]string
}

func NewCached(next Translator) *Cached {
	return &Cached{next: next, cache: make(map[string]string)}
}

func (c *Cached) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || SameLanguage(sourceLang, targetLang) {
		return text, nil
	}

	key := sourceLang + "|" + targetLang + "|" + text
	c.mu.RLock()
	cached, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	translated, err := c.next.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return translated, err
	}

	c.mu.Lock()
	c.cache[key] = translated
	c.mu.Unlock()
	return translated, nil
}
