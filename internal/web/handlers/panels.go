package handlers

import (
	"errors"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/constants"
	"github.com/kozaktomas/faceswap/internal/faceswap"
	"github.com/kozaktomas/faceswap/internal/journal"
	"github.com/kozaktomas/faceswap/internal/synth"
	"github.com/kozaktomas/faceswap/internal/translate"
)

// Submission outcomes reported to PanelMetrics.
const (
	OutcomeDispatched  = "dispatched"
	OutcomeBusy        = "busy"
	OutcomeInvalid     = "invalid"
	OutcomeStatusError = "status_error"
	OutcomeRejected    = "rejected"
)

// PanelMetrics receives panel lifecycle events.
type PanelMetrics interface {
	PanelOpened()
	PanelClosed()
	Submission(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) PanelOpened()      {}
func (noopMetrics) PanelClosed()      {}
func (noopMetrics) Submission(string) {}

// PanelServices are the collaborators shared by every panel.
type PanelServices struct {
	Backend    faceswap.Backend
	Uploader   faceswap.Uploader    // optional
	Translator translate.Translator // optional
	Journal    journal.Journal      // optional
}

type panelEntry struct {
	EventBroadcaster
	panel *faceswap.Panel
}

// PanelsHandler serves face swap panels. Each panel lives in memory until it
// is closed or its job is dispatched.
type PanelsHandler struct {
	config   *config.Config
	services PanelServices
	metrics  PanelMetrics

	mu     sync.RWMutex
	panels map[string]*panelEntry
}

// NewPanelsHandler creates a panels handler. metrics may be nil.
func NewPanelsHandler(cfg *config.Config, services PanelServices, metrics PanelMetrics) *PanelsHandler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &PanelsHandler{
		config:   cfg,
		services: services,
		metrics:  metrics,
		panels:   make(map[string]*panelEntry),
	}
}

func (h *PanelsHandler) get(id string) *panelEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.panels[id]
}

// remove drops a panel from the registry. Returns false if it was already gone.
func (h *PanelsHandler) remove(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.panels[id]; !ok {
		return false
	}
	delete(h.panels, id)
	return true
}

// lookup resolves the {id} URL parameter, writing a 404 when the panel is unknown.
func (h *PanelsHandler) lookup(w http.ResponseWriter, r *http.Request) *panelEntry {
	entry := h.get(chi.URLParam(r, "id"))
	if entry == nil {
		respondError(w, http.StatusNotFound, "panel not found")
	}
	return entry
}

// Count returns the number of open panels.
func (h *PanelsHandler) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.panels)
}

// CloseAll closes every panel, ending their event streams.
func (h *PanelsHandler) CloseAll() {
	h.mu.Lock()
	entries := make([]*panelEntry, 0, len(h.panels))
	for id, entry := range h.panels {
		entries = append(entries, entry)
		delete(h.panels, id)
	}
	h.mu.Unlock()

	for _, entry := range entries {
		entry.panel.Close()
		h.metrics.PanelClosed()
	}
}

// Open handles POST /panels: creates a panel and queries model availability.
func (h *PanelsHandler) Open(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	entry := &panelEntry{}

	reporter := faceswap.NewMemoryReporter()
	reporter.OnChange(func(ev faceswap.StatusEvent) {
		entry.SendEvent(PanelEvent{Type: EventStatus, Message: ev.Text, Data: ev})
	})

	sess := faceswap.NewSession(h.config, h.services.Backend, reporter, h.services.Translator)
	sess.Uploader = h.services.Uploader
	sess.Journal = h.services.Journal
	sess.Panel = faceswap.PanelCloserFunc(func() {
		entry.SendEvent(PanelEvent{Type: EventClosed})
	})

	entry.panel = faceswap.NewPanel(id, sess)
	entry.panel.Open(r.Context())

	h.mu.Lock()
	h.panels[id] = entry
	h.mu.Unlock()
	h.metrics.PanelOpened()

	respondJSON(w, http.StatusCreated, entry.panel.View())
}

// Get handles GET /panels/{id}.
func (h *PanelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	respondJSON(w, http.StatusOK, entry.panel.View())
}

// Close handles DELETE /panels/{id}. Nothing is sent to the backend.
func (h *PanelsHandler) Close(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	entry.panel.Close()
	if h.remove(entry.panel.ID()) {
		h.metrics.PanelClosed()
	}
	w.WriteHeader(http.StatusNoContent)
}

// mediaFileFromHeader wraps an uploaded multipart file.
func mediaFileFromHeader(fh *multipart.FileHeader, duration float64) faceswap.MediaFile {
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(fh.Filename)); byExt != "" {
			contentType = byExt
		}
	}
	return faceswap.MediaFile{
		Name:        filepath.Base(fh.Filename),
		ContentType: contentType,
		Size:        fh.Size,
		Duration:    duration,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// LoadMedia handles POST /panels/{id}/slots/{role}/media (multipart field "file",
// optional "duration" in seconds for video).
func (h *PanelsHandler) LoadMedia(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxMultipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no file provided")
		return
	}

	var duration float64
	if raw := r.FormValue("duration"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d < 0 {
			respondError(w, http.StatusBadRequest, "invalid duration")
			return
		}
		duration = d
	}

	file := mediaFileFromHeader(files[0], duration)
	surface, err := entry.panel.LoadMedia(r.Context(), role, file)
	if err != nil {
		log.Printf("panels: loading %s into %s of panel %s failed: %v", sanitizeForLog(file.Name), role, entry.panel.ID(), err)
		respondPanelError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"media":   entry.panel.View().Slot(role).Media,
		"surface": surface,
	})
}

// Preview handles GET /panels/{id}/slots/{role}/preview.
func (h *PanelsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}

	preview, ok := entry.panel.Preview(role)
	if !ok {
		respondError(w, http.StatusNotFound, "no preview")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(preview)
}

type clickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Click handles POST /panels/{id}/slots/{role}/click.
func (h *PanelsHandler) Click(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	var req clickRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := entry.panel.Click(role, req.X, req.Y); err != nil {
		respondPanelError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry.panel.View().Slot(role).Selection)
}

// ClearSelection handles DELETE /panels/{id}/slots/{role}/selection.
func (h *PanelsHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	if err := entry.panel.ClearSelection(role); err != nil {
		respondPanelError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type timelineRequest struct {
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Current *float64 `json:"current"`
}

// Timeline handles PUT /panels/{id}/slots/{role}/timeline. start and end must
// be given together; current scrubs within the resulting range.
func (h *PanelsHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	var req timelineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if (req.Start == nil) != (req.End == nil) {
		respondError(w, http.StatusBadRequest, "start and end must be set together")
		return
	}

	if req.Start != nil {
		if err := entry.panel.SetRange(role, *req.Start, *req.End); err != nil {
			respondPanelError(w, err)
			return
		}
	}
	if req.Current != nil {
		if err := entry.panel.Scrub(role, *req.Current); err != nil {
			respondPanelError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, entry.panel.View().Slot(role).Media)
}

type paramsRequest struct {
	Toggle       string  `json:"toggle,omitempty"`
	Checked      bool    `json:"checked"`
	SimilarCoeff *string `json:"similar_coeff,omitempty"`
}

// Params handles PUT /panels/{id}/params.
func (h *PanelsHandler) Params(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	var req paramsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Toggle != "" {
		if err := entry.panel.SetToggle(req.Toggle, req.Checked); err != nil {
			respondPanelError(w, err)
			return
		}
	}
	if req.SimilarCoeff != nil {
		if err := entry.panel.SetSimilarCoeff(*req.SimilarCoeff); err != nil {
			respondPanelError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, entry.panel.View().Params)
}

// Submit handles POST /panels/{id}/submit. On success the job is running on
// the backend and the panel is gone.
func (h *PanelsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}

	req, err := entry.panel.Submit(r.Context())
	if err != nil {
		h.metrics.Submission(submissionOutcome(err))
		respondPanelError(w, err)
		return
	}
	h.metrics.Submission(OutcomeDispatched)

	if h.remove(entry.panel.ID()) {
		h.metrics.PanelClosed()
	}
	respondJSON(w, http.StatusAccepted, req.Payload())
}

// Events handles GET /panels/{id}/events.
func (h *PanelsHandler) Events(w http.ResponseWriter, r *http.Request) {
	entry := h.lookup(w, r)
	if entry == nil {
		return
	}
	streamSSEEvents(w, r, &entry.EventBroadcaster, entry.panel.View())
}

func submissionOutcome(err error) string {
	switch {
	case errors.Is(err, faceswap.ErrBackendBusy):
		return OutcomeBusy
	case errors.Is(err, faceswap.ErrStatusCheck):
		return OutcomeStatusError
	case faceswap.FailedRoles(err) != nil:
		return OutcomeInvalid
	default:
		return OutcomeRejected
	}
}

// respondPanelError maps panel errors to HTTP responses.
func respondPanelError(w http.ResponseWriter, err error) {
	if roles := faceswap.FailedRoles(err); roles != nil {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": err.Error(),
			"roles": roles,
		})
		return
	}

	switch {
	case errors.Is(err, faceswap.ErrBackendBusy), errors.Is(err, faceswap.ErrNotIdle),
		errors.Is(err, faceswap.ErrPanelClosed):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, faceswap.ErrStatusCheck):
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, faceswap.ErrUnsupportedMedia):
		respondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, faceswap.ErrUnreadableMedia), errors.Is(err, synth.ErrEmptyFilename):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, faceswap.ErrNoMedia), errors.Is(err, faceswap.ErrNotVideo),
		errors.Is(err, faceswap.ErrOutsideSurface), errors.Is(err, faceswap.ErrInvalidRange),
		errors.Is(err, faceswap.ErrUnknownToggle):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusBadGateway, err.Error())
	}
}
