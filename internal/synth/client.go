package synth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to the synthesis backend.
type Client struct {
	URL        string
	parsedURL  *url.URL
	httpClient *http.Client
	captureDir string
}

// NewClient creates a backend client for the given base URL.
func NewClient(rawURL string) (*Client, error) {
	return NewClientWithCapture(rawURL, "")
}

// NewClientWithCapture creates a backend client with optional response capturing.
// Pass an empty captureDir to disable capturing.
func NewClientWithCapture(rawURL, captureDir string) (*Client, error) {
	baseURL := strings.TrimRight(rawURL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", rawURL)
	}

	// No client-wide timeout: a face swap POST stays open for the whole job.
	// Short calls are bounded by the caller's context.
	c := &Client{URL: baseURL, parsedURL: parsed, httpClient: &http.Client{}}
	if captureDir != "" {
		if err := c.SetCaptureDir(captureDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// resolveURL builds a full URL from the base URL and an endpoint path.
// Trailing slashes are kept because the backend routes depend on them.
func (c *Client) resolveURL(endpoint string) string {
	pathPart, query, hasQuery := strings.Cut(endpoint, "?")
	result := c.parsedURL.JoinPath(pathPart)
	if strings.HasSuffix(pathPart, "/") && !strings.HasSuffix(result.Path, "/") {
		result.Path += "/"
	}
	if hasQuery {
		result.RawQuery = query
	}
	return result.String()
}

// readErrorBody reads the response body for error messages.
// Returns empty string if reading fails (we're already in an error path).
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

// SetCaptureDir enables backend response capturing to the specified directory.
// Pass an empty string to disable capturing.
func (c *Client) SetCaptureDir(dir string) error {
	if dir == "" {
		c.captureDir = ""
		return nil
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("could not create capture directory: %w", err)
	}
	c.captureDir = dir
	return nil
}

// captureResponse saves the response body to a file if capturing is enabled.
func (c *Client) captureResponse(endpoint string, body []byte) {
	if c.captureDir == "" {
		return
	}

	filename := strings.Trim(strings.ReplaceAll(endpoint, "/", "_"), "_")
	timestamp := time.Now().Format("20060102_150405")
	filename = fmt.Sprintf("%s_%s.json", filename, timestamp)

	path := filepath.Join(c.captureDir, filename)

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, body, "", "  "); err == nil {
		body = prettyJSON.Bytes()
	}

	if err := os.WriteFile(path, body, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to capture response to %s: %v\n", path, err)
	}
}
