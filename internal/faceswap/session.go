package faceswap

import (
	"context"
	"io"
	"log"
	"time"

	"golang.org/x/text/language"

	"github.com/kozaktomas/faceswap/internal/config"
	"github.com/kozaktomas/faceswap/internal/journal"
	"github.com/kozaktomas/faceswap/internal/synth"
	"github.com/kozaktomas/faceswap/internal/translate"
)

// Status message keys (see config/messages.yaml).
const (
	MsgVideoLoading       = "video_loading"
	MsgChooseFace         = "choose_face"
	MsgUploadFailed       = "upload_failed"
	MsgProcessBusy        = "process_busy"
	MsgWaitPrevious       = "wait_previous"
	msgMissingMediaFormat = "missing_%s_media"
	msgMissingFaceFormat  = "missing_%s_face"
)

// Backend is the part of the synthesis backend the panel uses.
type Backend interface {
	ProcessStatus(ctx context.Context) (*synth.ProcessStatus, error)
	SubmitFaceSwap(ctx context.Context, req *synth.FaceSwapRequest) (*synth.SubmitResponse, error)
	Inspect(ctx context.Context, endpoint string) (*synth.InspectResult, error)
}

// Uploader sends media to the backend tmp folder and returns the stored name.
type Uploader interface {
	UploadTmp(ctx context.Context, name string, r io.Reader, chunkSize int, progress func(sent int64)) (string, error)
}

// PanelCloser hides the interactive panel once a job is dispatched.
type PanelCloser interface {
	Close()
}

// PanelCloserFunc adapts a function to PanelCloser.
type PanelCloserFunc func()

func (f PanelCloserFunc) Close() { f() }

// Session carries the locale, the panel handle and the collaborators every
// panel operation needs.
type Session struct {
	PanelID    string
	Locale     language.Tag
	Panel      PanelCloser // optional
	Reporter   StatusReporter
	Translator translate.Translator
	Backend    Backend
	Uploader   Uploader        // optional, media names are used as given when nil
	Journal    journal.Journal // optional
	Messages   config.Messages

	StatusTimeout   time.Duration
	InspectEndpoint string
	UploadChunkSize int
	PreviewWidth    int
	PreviewHeight   int

	// UploadProgress, when set, is called while media is uploaded.
	UploadProgress func(role Role, sent, total int64)
}

// NewSession creates a session from configuration. Translator may be nil.
func NewSession(cfg *config.Config, backend Backend, reporter StatusReporter, translator translate.Translator) *Session {
	locale, err := language.Parse(cfg.Panel.Locale)
	if err != nil {
		log.Printf("faceswap: invalid locale %q, using English: %v", cfg.Panel.Locale, err)
		locale = language.English
	}
	if translator == nil {
		translator = translate.Passthrough{}
	}
	messages := cfg.Messages
	if messages == nil {
		messages = config.LoadMessages()
	}

	return &Session{
		Locale:          locale,
		Reporter:        reporter,
		Translator:      translator,
		Backend:         backend,
		Messages:        messages,
		StatusTimeout:   cfg.Backend.StatusTimeout,
		InspectEndpoint: cfg.Backend.InspectEndpoint,
		UploadChunkSize: cfg.Backend.UploadChunkSize,
		PreviewWidth:    cfg.Panel.PreviewWidth,
		PreviewHeight:   cfg.Panel.PreviewHeight,
	}
}

// notify translates the message for key and shows it in the slot's status area.
// A failed translation falls back to the English text.
func (s *Session) notify(ctx context.Context, role Role, key string) {
	text := s.Messages.Text(key)
	if s.Translator != nil {
		translated, err := s.Translator.Translate(ctx, text, translate.AutoDetect, s.Locale.String())
		if err != nil {
			log.Printf("faceswap: could not translate %q: %v", key, err)
		}
		if translated != "" {
			text = translated
		}
	}
	s.Reporter.ShowStatus(ctx, role, text)
}

func (s *Session) clearStatus(role Role) {
	s.Reporter.ClearStatus(role)
}

// withStatusTimeout bounds short backend calls.
func (s *Session) withStatusTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.StatusTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.StatusTimeout)
}
