package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/synth"
)

// testConfig creates a minimal config for testing
func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			URL:             backendURL,
			StatusTimeout:   2 * time.Second,
			InspectEndpoint: "inspect_face_swap",
			UploadChunkSize: 1024,
		},
		Panel:    config.PanelConfig{Locale: "en", PreviewWidth: 640, PreviewHeight: 480},
		Messages: config.LoadMessages(),
	}
}

// mockBackend is a synthesis backend served over httptest.
type mockBackend struct {
	server     *httptest.Server
	statusCode atomic.Int32

	mu        sync.Mutex
	submitted []synth.FaceSwapRequest
	uploaded  map[string]int
}

func setupMockBackend(t *testing.T) *mockBackend {
	t.Helper()
	b := &mockBackend{uploaded: map[string]int{}}
	b.statusCode.Store(200)

	mux := http.NewServeMux()
	mux.HandleFunc("/synthesize_process/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"status_code": int(b.statusCode.Load())})
	})
	mux.HandleFunc("/inspect_face_swap", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"offline_status":      true,
			"models_is_not_exist": "Can be used in offline mode.",
		})
	})
	mux.HandleFunc("/synthesize_face_swap/", func(w http.ResponseWriter, r *http.Request) {
		var req synth.FaceSwapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		b.submitted = append(b.submitted, req)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]int{"status": 200})
	})
	mux.HandleFunc("/upload_tmp", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		n, _ := io.Copy(io.Discard, file)
		b.mu.Lock()
		b.uploaded[header.Filename] += int(n)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *mockBackend) Submitted() []synth.FaceSwapRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]synth.FaceSwapRequest(nil), b.submitted...)
}

func (b *mockBackend) Uploaded(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploaded[name]
}

// fakeMetrics records metric calls.
type fakeMetrics struct {
	mu       sync.Mutex
	opened   int
	closed   int
	outcomes []string
}

func (m *fakeMetrics) PanelOpened() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened++
}

func (m *fakeMetrics) PanelClosed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
}

func (m *fakeMetrics) Submission(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

// newTestPanels creates a panels handler talking to a mock backend.
func newTestPanels(t *testing.T) (*PanelsHandler, *mockBackend, *fakeMetrics) {
	t.Helper()
	backend := setupMockBackend(t)
	client, err := synth.NewClient(backend.server.URL)
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}
	metrics := &fakeMetrics{}
	h := NewPanelsHandler(testConfig(backend.server.URL), PanelServices{
		Backend:  client,
		Uploader: client,
	}, metrics)
	t.Cleanup(h.CloseAll)
	return h, backend, metrics
}

// newTestRouter mounts the panel routes the way the server does.
func newTestRouter(h *PanelsHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/panels", func(r chi.Router) {
		r.Post("/", h.Open)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Close)
			r.Put("/params", h.Params)
			r.Get("/events", h.Events)
			r.Post("/submit", h.Submit)
			r.Route("/slots/{role}", func(r chi.Router) {
				r.Post("/media", h.LoadMedia)
				r.Get("/preview", h.Preview)
				r.Post("/click", h.Click)
				r.Delete("/selection", h.ClearSelection)
				r.Put("/timeline", h.Timeline)
			})
		})
	})
	return r
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a media upload request with a single "file" part
func multipartRequest(t *testing.T, path, filename, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if filename != "" {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		if contentType != "" {
			header.Set("Content-Type", contentType)
		}
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("failed to create part: %v", err)
		}
		part.Write(data)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
