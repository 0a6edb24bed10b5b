package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceswap/internal/faceswap"
	"github.com/kozaktomas/faceswap/internal/synth"
)

func serve(router *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

// openPanel opens a panel through the router and returns its id.
func openPanel(t *testing.T, router *chi.Mux) string {
	t.Helper()
	recorder := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/panels", nil))
	assertStatusCode(t, recorder, http.StatusCreated)
	var view faceswap.PanelView
	parseJSONResponse(t, recorder, &view)
	return view.ID
}

// loadImage uploads a PNG into a slot and marks one face.
func loadImage(t *testing.T, router *chi.Mux, id, role, name string) {
	t.Helper()
	base := "/api/v1/panels/" + id + "/slots/" + role
	recorder := serve(router, multipartRequest(t, base+"/media", name, "image/png", pngBytes(t, 64, 48), nil))
	assertStatusCode(t, recorder, http.StatusOK)
	recorder = serve(router, jsonRequest(t, http.MethodPost, base+"/click", map[string]float64{"x": 10, "y": 12}))
	assertStatusCode(t, recorder, http.StatusOK)
}

func TestPanels_Open(t *testing.T) {
	h, _, metrics := newTestPanels(t)

	recorder := httptest.NewRecorder()
	h.Open(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/panels", nil))

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var view faceswap.PanelView
	parseJSONResponse(t, recorder, &view)
	if view.ID == "" || !view.Open || view.State != faceswap.StateIdle {
		t.Errorf("unexpected view %+v", view)
	}
	if view.Note == nil || !view.Note.OfflineStatus || view.Note.Message != "Can be used in offline mode." {
		t.Errorf("unexpected note %+v", view.Note)
	}
	if view.Params.SimilarCoeff != "1.2" {
		t.Errorf("expected default coefficient, got %q", view.Params.SimilarCoeff)
	}
	if h.Count() != 1 || metrics.opened != 1 {
		t.Errorf("expected one open panel, got %d (metrics %d)", h.Count(), metrics.opened)
	}

	getRecorder := httptest.NewRecorder()
	h.Get(getRecorder, requestWithChiParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": view.ID}))
	assertStatusCode(t, getRecorder, http.StatusOK)
}

func TestPanels_UnknownPanel(t *testing.T) {
	h, _, _ := newTestPanels(t)
	router := newTestRouter(h)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/panels/nope"},
		{http.MethodDelete, "/api/v1/panels/nope"},
		{http.MethodPost, "/api/v1/panels/nope/submit"},
		{http.MethodGet, "/api/v1/panels/nope/events"},
		{http.MethodGet, "/api/v1/panels/nope/slots/target/preview"},
	}
	for _, p := range paths {
		recorder := serve(router, httptest.NewRequest(p.method, p.path, nil))
		assertStatusCode(t, recorder, http.StatusNotFound)
		assertJSONError(t, recorder, "panel not found")
	}
}

func TestPanels_SubmitFlow(t *testing.T) {
	h, backend, metrics := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	panel := h.get(id).panel

	loadImage(t, router, id, "target", "Group Photo.png")
	loadImage(t, router, id, "source", "face.png")

	recorder := serve(router, jsonRequest(t, http.MethodPut, "/api/v1/panels/"+id+"/params",
		map[string]any{"toggle": "similarface", "checked": true, "similar_coeff": "2.5"}))
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/panels/"+id+"/submit", nil))
	assertStatusCode(t, recorder, http.StatusAccepted)

	var payload synth.FaceSwapRequest
	parseJSONResponse(t, recorder, &payload)
	if payload.TargetContent != "Group_Photo.png" || payload.SourceContent != "face.png" {
		t.Errorf("unexpected contents %q / %q", payload.TargetContent, payload.SourceContent)
	}
	if !payload.Similarface || payload.Multiface || payload.SimilarCoeff != "2.5" {
		t.Errorf("unexpected params %+v", payload)
	}
	if payload.TypeFileTarget != "img" || len(payload.FaceTargetFields) != 1 {
		t.Errorf("unexpected target fields %+v", payload)
	}

	panel.Controller().Wait()
	if got := backend.Submitted(); len(got) != 1 || got[0].TargetContent != "Group_Photo.png" {
		t.Errorf("unexpected backend submissions %+v", got)
	}
	if backend.Uploaded("face.png") == 0 {
		t.Error("expected source media uploaded to the backend")
	}

	if h.Count() != 0 {
		t.Error("expected panel removed after dispatch")
	}
	if !slices.Equal(metrics.outcomes, []string{OutcomeDispatched}) || metrics.closed != 1 {
		t.Errorf("unexpected metrics %+v", metrics)
	}
}

func TestPanels_SubmitMissingMedia(t *testing.T) {
	h, backend, metrics := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)

	recorder := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/panels/"+id+"/submit", nil))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	var body struct {
		Error string          `json:"error"`
		Roles []faceswap.Role `json:"roles"`
	}
	parseJSONResponse(t, recorder, &body)
	if !slices.Equal(body.Roles, []faceswap.Role{faceswap.RoleTarget, faceswap.RoleSource}) {
		t.Errorf("expected both roles, got %v", body.Roles)
	}
	if len(backend.Submitted()) != 0 || h.Count() != 1 {
		t.Error("expected nothing submitted and panel still open")
	}
	if !slices.Equal(metrics.outcomes, []string{OutcomeInvalid}) {
		t.Errorf("unexpected outcomes %v", metrics.outcomes)
	}
}

func TestPanels_SubmitBusy(t *testing.T) {
	h, backend, metrics := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	loadImage(t, router, id, "target", "t.png")
	loadImage(t, router, id, "source", "s.png")
	backend.statusCode.Store(300)

	recorder := serve(router, httptest.NewRequest(http.MethodPost, "/api/v1/panels/"+id+"/submit", nil))
	assertStatusCode(t, recorder, http.StatusConflict)

	var view faceswap.PanelView
	parseJSONResponse(t, serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/panels/"+id, nil)), &view)
	if !view.Open || view.Target.Media.Name != "t.png" {
		t.Errorf("expected panel to stay as it was, got %+v", view)
	}
	if !slices.Equal(metrics.outcomes, []string{OutcomeBusy}) {
		t.Errorf("unexpected outcomes %v", metrics.outcomes)
	}
}

func TestPanels_LoadMediaErrors(t *testing.T) {
	h, _, _ := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	base := "/api/v1/panels/" + id + "/slots/"

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"unknown role", multipartRequest(t, base+"both/media", "a.png", "image/png", pngBytes(t, 4, 4), nil), http.StatusBadRequest},
		{"no file", multipartRequest(t, base+"target/media", "", "", nil, nil), http.StatusBadRequest},
		{"not multipart", jsonRequest(t, http.MethodPost, base+"target/media", map[string]string{}), http.StatusBadRequest},
		{"invalid duration", multipartRequest(t, base+"target/media", "v.mp4", "video/mp4", []byte("x"), map[string]string{"duration": "-3"}), http.StatusBadRequest},
		{"unsupported type", multipartRequest(t, base+"target/media", "notes.txt", "text/plain", []byte("hi"), nil), http.StatusUnsupportedMediaType},
		{"broken image", multipartRequest(t, base+"target/media", "bad.png", "image/png", []byte("garbage"), nil), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertStatusCode(t, serve(router, tt.req), tt.status)
		})
	}
}

func TestPanels_PreviewAndClick(t *testing.T) {
	h, _, _ := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	base := "/api/v1/panels/" + id + "/slots/"

	recorder := serve(router, multipartRequest(t, base+"target/media", "t.png", "", pngBytes(t, 64, 48), nil))
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = serve(router, httptest.NewRequest(http.MethodGet, base+"target/preview", nil))
	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "image/jpeg")

	recorder = serve(router, httptest.NewRequest(http.MethodGet, base+"source/preview", nil))
	assertStatusCode(t, recorder, http.StatusNotFound)

	recorder = serve(router, jsonRequest(t, http.MethodPost, base+"target/click", map[string]float64{"x": 100, "y": 10}))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	recorder = serve(router, jsonRequest(t, http.MethodPost, base+"source/click", map[string]float64{"x": 1, "y": 1}))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	recorder = serve(router, jsonRequest(t, http.MethodPost, base+"target/click", map[string]float64{"x": 5, "y": 6}))
	assertStatusCode(t, recorder, http.StatusOK)
	var sel faceswap.FaceSelection
	parseJSONResponse(t, recorder, &sel)
	if len(sel.Points) != 1 || sel.Points[0].CanvasWidth != 64 {
		t.Errorf("unexpected selection %+v", sel)
	}

	recorder = serve(router, httptest.NewRequest(http.MethodDelete, base+"target/selection", nil))
	assertStatusCode(t, recorder, http.StatusNoContent)
	if h.get(id).panel.View().Target.Selection.Complete() {
		t.Error("expected selection cleared")
	}
}

func TestPanels_Timeline(t *testing.T) {
	h, _, _ := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	base := "/api/v1/panels/" + id + "/slots/"

	recorder := serve(router, multipartRequest(t, base+"source/media", "clip.mp4", "video/mp4", []byte("frames"), map[string]string{"duration": "10"}))
	assertStatusCode(t, recorder, http.StatusOK)

	recorder = serve(router, jsonRequest(t, http.MethodPut, base+"source/timeline", map[string]float64{"start": 1, "end": 4, "current": 9}))
	assertStatusCode(t, recorder, http.StatusOK)
	var media faceswap.MediaSlot
	parseJSONResponse(t, recorder, &media)
	if *media.StartTime != 1 || *media.EndTime != 4 || *media.CurrentTime != 4 {
		t.Errorf("unexpected times %v %v %v", *media.StartTime, *media.EndTime, *media.CurrentTime)
	}

	recorder = serve(router, jsonRequest(t, http.MethodPut, base+"source/timeline", map[string]float64{"start": 1}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "start and end must be set together")

	recorder = serve(router, jsonRequest(t, http.MethodPut, base+"source/timeline", map[string]float64{"start": 5, "end": 20}))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	recorder = serve(router, jsonRequest(t, http.MethodPut, base+"target/timeline", map[string]float64{"current": 1}))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestPanels_Params(t *testing.T) {
	h, _, _ := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	path := "/api/v1/panels/" + id + "/params"

	recorder := serve(router, jsonRequest(t, http.MethodPut, path, map[string]any{"toggle": "multiface", "checked": true}))
	assertStatusCode(t, recorder, http.StatusOK)
	recorder = serve(router, jsonRequest(t, http.MethodPut, path, map[string]any{"toggle": "similarface", "checked": true}))
	var params faceswap.ParameterState
	parseJSONResponse(t, recorder, &params)
	if params.Multiface || !params.Similarface {
		t.Errorf("expected similarface to replace multiface, got %+v", params)
	}

	recorder = serve(router, jsonRequest(t, http.MethodPut, path, map[string]any{"toggle": "everything", "checked": true}))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)

	recorder = serve(router, httptest.NewRequest(http.MethodPut, path, strings.NewReader("{")))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestPanels_Close(t *testing.T) {
	h, backend, metrics := newTestPanels(t)
	router := newTestRouter(h)
	id := openPanel(t, router)
	loadImage(t, router, id, "target", "t.png")

	recorder := serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/panels/"+id, nil))
	assertStatusCode(t, recorder, http.StatusNoContent)

	if h.Count() != 0 || metrics.closed != 1 {
		t.Errorf("expected panel gone, count %d closed %d", h.Count(), metrics.closed)
	}
	if len(backend.Submitted()) != 0 {
		t.Error("expected nothing sent to the backend on close")
	}
	recorder = serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/panels/"+id, nil))
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestPanels_Events(t *testing.T) {
	h, _, _ := newTestPanels(t)
	router := newTestRouter(h)
	server := httptest.NewServer(router)
	defer server.Close()
	id := openPanel(t, router)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/panels/"+id+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected event stream, got %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	// readUntil returns the data line following the first "event: <name>" line.
	readUntil := func(name string) string {
		t.Helper()
		for scanner.Scan() {
			if scanner.Text() == "event: "+name && scanner.Scan() {
				return scanner.Text()
			}
		}
		t.Fatalf("stream ended before %q event: %v", name, scanner.Err())
		return ""
	}

	if data := readUntil(EventPanel); !strings.Contains(data, id) {
		t.Errorf("expected initial panel view, got %s", data)
	}

	recorder := serve(router, multipartRequest(t, "/api/v1/panels/"+id+"/slots/target/media", "t.png", "image/png", pngBytes(t, 8, 8), nil))
	assertStatusCode(t, recorder, http.StatusOK)
	if data := readUntil(EventStatus); !strings.Contains(data, "Choose a face to animate by tool") {
		t.Errorf("unexpected status event %s", data)
	}

	recorder = serve(router, httptest.NewRequest(http.MethodDelete, "/api/v1/panels/"+id, nil))
	assertStatusCode(t, recorder, http.StatusNoContent)
	readUntil(EventClosed)

	if scanner.Scan() && scanner.Scan() && scanner.Scan() {
		t.Error("expected stream to end after the closed event")
	}
}

func TestSubmissionOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{faceswap.ErrBackendBusy, OutcomeBusy},
		{faceswap.ErrStatusCheck, OutcomeStatusError},
		{&faceswap.ValidationError{Err: faceswap.ErrMissingFaceSelection, Roles: []faceswap.Role{faceswap.RoleSource}}, OutcomeInvalid},
		{faceswap.ErrNotIdle, OutcomeRejected},
	}
	for _, tt := range tests {
		if got := submissionOutcome(tt.err); got != tt.want {
			t.Errorf("submissionOutcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
