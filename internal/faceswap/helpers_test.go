package faceswap

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/synth"
)

// fakeBackend is an in-memory synthesis backend.
type fakeBackend struct {
	mu          sync.Mutex
	statusCode  int
	statusErr   error
	statusCalls int
	submitted   []*synth.FaceSwapRequest
	inspect     *synth.InspectResult
	inspectErr  error
	inspectedAt []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		statusCode: 200,
		inspect:    &synth.InspectResult{OfflineStatus: true, Message: "Can be used in offline mode."},
	}
}

func (b *fakeBackend) ProcessStatus(context.Context) (*synth.ProcessStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusCalls++
	if b.statusErr != nil {
		return nil, b.statusErr
	}
	return &synth.ProcessStatus{StatusCode: b.statusCode}, nil
}

func (b *fakeBackend) SubmitFaceSwap(_ context.Context, req *synth.FaceSwapRequest) (*synth.SubmitResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submitted = append(b.submitted, req)
	return &synth.SubmitResponse{Status: 200}, nil
}

func (b *fakeBackend) Inspect(_ context.Context, endpoint string) (*synth.InspectResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inspectedAt = append(b.inspectedAt, endpoint)
	if b.inspectErr != nil {
		return nil, b.inspectErr
	}
	return b.inspect, nil
}

func (b *fakeBackend) Submitted() []*synth.FaceSwapRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*synth.FaceSwapRequest, len(b.submitted))
	copy(out, b.submitted)
	return out
}

// fakeUploader records uploads and returns the secure name.
type fakeUploader struct {
	err      error
	uploaded map[string][]byte
}

func (u *fakeUploader) UploadTmp(_ context.Context, name string, r io.Reader, _ int, progress func(int64)) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if u.uploaded == nil {
		u.uploaded = map[string][]byte{}
	}
	stored := synth.SecureFilename(name)
	u.uploaded[stored] = data
	if progress != nil {
		progress(int64(len(data)))
	}
	return stored, nil
}

// prefixTranslator marks translated text with the target language.
type prefixTranslator struct {
	fail bool
}

func (p prefixTranslator) Translate(_ context.Context, text, _, targetLang string) (string, error) {
	if p.fail {
		return text, errors.New("translation service down")
	}
	return "[" + targetLang + "] " + text, nil
}

type closeCounter struct {
	mu    sync.Mutex
	count int
}

func (c *closeCounter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

func (c *closeCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func testConfig() *config.Config {
	return &config.Config{
		Backend: config.BackendConfig{
			URL:             "http://127.0.0.1:8000",
			StatusTimeout:   2 * time.Second,
			InspectEndpoint: "inspect_face_swap",
			UploadChunkSize: 1024,
		},
		Panel:    config.PanelConfig{Locale: "en", PreviewWidth: 640, PreviewHeight: 480},
		Messages: config.LoadMessages(),
	}
}

func newTestSession(t *testing.T, backend Backend) (*Session, *MemoryReporter, *closeCounter) {
	t.Helper()
	reporter := NewMemoryReporter()
	sess := NewSession(testConfig(), backend, reporter, nil)
	closer := &closeCounter{}
	sess.Panel = closer
	return sess, reporter, closer
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func imageFile(t *testing.T, name string, width, height int) MediaFile {
	t.Helper()
	return BytesFile(name, "image/png", pngBytes(t, width, height))
}

func videoFile(name string, duration float64) MediaFile {
	f := BytesFile(name, "video/mp4", []byte("not really a video"))
	f.Duration = duration
	return f
}

// loadAndClick loads media into a slot and marks one face.
func loadAndClick(t *testing.T, sess *Session, slot *Slot, file MediaFile, x, y float64) {
	t.Helper()
	if _, err := slot.LoadMedia(context.Background(), sess, file); err != nil {
		t.Fatalf("LoadMedia(%s) failed: %v", slot.Role(), err)
	}
	if err := slot.Selector().Click(x, y); err != nil {
		t.Fatalf("Click(%s) failed: %v", slot.Role(), err)
	}
}
