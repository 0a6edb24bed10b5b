package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/faceswap/internal/constants"
)

//go:embed messages.yaml
var messagesYAML []byte

type Config struct {
	Backend   BackendConfig
	Panel     PanelConfig
	Translate TranslateConfig
	Database  DatabaseConfig
	Web       WebConfig
	Messages  Messages
}

type BackendConfig struct {
	URL             string        // synthesis backend base URL
	StatusTimeout   time.Duration // bound for the busy check and the inspector query
	InspectEndpoint string        // model availability endpoint queried when a panel opens
	UploadChunkSize int           // bytes per /upload_tmp request
}

type PanelConfig struct {
	Locale        string // BCP 47 tag of the user's language
	PreviewWidth  int
	PreviewHeight int
}

type TranslateConfig struct {
	Provider     string // openai, gemini, ollama or none
	Offline      bool   // never call a remote translation service
	OpenAIToken  string
	GeminiAPIKey string
	OllamaURL    string
	OllamaModel  string
}

// Enabled reports whether status messages should be sent to a translation service.
func (c *TranslateConfig) Enabled() bool {
	switch c.Provider {
	case "ollama":
		// runs next to the backend, usable offline
		return true
	}
	if c.Offline {
		return false
	}
	switch c.Provider {
	case "openai":
		return c.OpenAIToken != ""
	case "gemini":
		return c.GeminiAPIKey != ""
	default:
		return false
	}
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the submission journal (optional)
	MaxOpenConns int    // Maximum pool connections (default 5)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string // extra CORS origins, localhost is always allowed
}

// Messages maps status message keys to their English source text.
type Messages map[string]string

// Text returns the text for key, or the key itself when the catalog has no entry.
func (m Messages) Text(key string) string {
	if text, ok := m[key]; ok && text != "" {
		return text
	}
	return key
}

type messageCatalog struct {
	Messages Messages `yaml:"messages"`
}

// LoadMessages parses the embedded status message catalog.
func LoadMessages() Messages {
	var catalog messageCatalog
	if err := yaml.Unmarshal(messagesYAML, &catalog); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded messages.yaml: " + err.Error())
	}
	return catalog.Messages
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envBool reads a boolean environment variable ("true", "1", "yes").
func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// envString returns the env var value or defaultVal when it is unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated env var, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:             strings.TrimRight(envString("FACESWAP_BACKEND_URL", "http://127.0.0.1:8000"), "/"),
			StatusTimeout:   time.Duration(envInt("FACESWAP_BACKEND_TIMEOUT_SECONDS", int(constants.DefaultStatusTimeout/time.Second))) * time.Second,
			InspectEndpoint: envString("FACESWAP_INSPECT_ENDPOINT", constants.DefaultInspectEndpoint),
			UploadChunkSize: envInt("FACESWAP_UPLOAD_CHUNK_BYTES", constants.DefaultUploadChunkSize),
		},
		Panel: PanelConfig{
			Locale:        envString("FACESWAP_LOCALE", "en"),
			PreviewWidth:  envInt("FACESWAP_PREVIEW_WIDTH", constants.DefaultPreviewWidth),
			PreviewHeight: envInt("FACESWAP_PREVIEW_HEIGHT", constants.DefaultPreviewHeight),
		},
		Translate: TranslateConfig{
			Provider:     strings.ToLower(envString("TRANSLATE_PROVIDER", "none")),
			Offline:      envBool("FACESWAP_OFFLINE"),
			OpenAIToken:  os.Getenv("OPENAI_TOKEN"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
			OllamaURL:    os.Getenv("OLLAMA_URL"),
			OllamaModel:  os.Getenv("OLLAMA_MODEL"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 5),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Messages: LoadMessages(),
	}
}
