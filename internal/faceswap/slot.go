package faceswap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kozaktomas/faceswap/internal/constants"
	"github.com/kozaktomas/faceswap/internal/synth"
)

// MediaFile is a file offered to a slot. Open may be called more than once.
type MediaFile struct {
	Name        string
	ContentType string
	Size        int64
	Duration    float64 // seconds, video only, 0 when unknown
	Open        func() (io.ReadCloser, error)
}

// FileFromPath describes a local file. The content type comes from the
// extension, or from sniffing the first bytes when the extension is unknown.
func FileFromPath(path string) (MediaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return MediaFile{}, fmt.Errorf("could not stat media: %w", err)
	}
	if info.IsDir() {
		return MediaFile{}, fmt.Errorf("%s is a directory", path)
	}

	open := func() (io.ReadCloser, error) {
		return os.Open(path) //nolint:gosec // user-provided media path
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		f, err := open()
		if err != nil {
			return MediaFile{}, fmt.Errorf("could not open media: %w", err)
		}
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		f.Close()
		contentType = http.DetectContentType(head[:n])
	}

	return MediaFile{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Open:        open,
	}, nil
}

// BytesFile wraps in-memory media.
func BytesFile(name, contentType string, data []byte) MediaFile {
	return MediaFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Slot is one media role of the panel: the loaded media, its preview surface
// and the face selector attached to it.
type Slot struct {
	role     Role
	media    MediaSlot
	surface  *Surface
	selector *FaceSelector
	preview  []byte
}

func NewSlot(role Role) *Slot {
	return &Slot{role: role, selector: NewFaceSelector(role)}
}

func (s *Slot) Role() Role { return s.role }

// Media returns a snapshot of the loaded media including the video positions.
func (s *Slot) Media() MediaSlot {
	m := s.media
	if s.surface != nil && s.surface.Timeline != nil {
		tl := s.surface.Timeline
		m.StartTime = float64Ptr(tl.Start)
		m.EndTime = float64Ptr(tl.End)
		m.CurrentTime = float64Ptr(tl.Current)
	}
	return m
}

func (s *Slot) Surface() *Surface { return s.surface }

func (s *Slot) Selector() *FaceSelector { return s.selector }

// Preview returns the JPEG preview of image media, or nil.
func (s *Slot) Preview() []byte { return s.preview }

// Reset empties the slot.
func (s *Slot) Reset() {
	s.media = MediaSlot{}
	s.surface = nil
	s.preview = nil
	s.selector.attach(nil)
}

// LoadMedia replaces the slot's media. The prior selection and status message
// are discarded first, then the media is sized, uploaded and attached to a new
// surface. On failure the slot is left empty.
func (s *Slot) LoadMedia(ctx context.Context, sess *Session, file MediaFile) (*Surface, error) {
	kind, err := KindFromContentType(file.ContentType)
	if err != nil {
		return nil, err
	}

	s.Reset()
	sess.clearStatus(s.role)

	if kind == KindVideo {
		sess.notify(ctx, s.role, MsgVideoLoading)
	}

	surface, preview, err := s.buildSurface(sess, kind, file)
	if err != nil {
		return nil, err
	}

	name, err := s.upload(ctx, sess, file)
	if err != nil {
		sess.notify(ctx, s.role, MsgUploadFailed)
		return nil, err
	}

	s.media = MediaSlot{Name: name, Kind: kind}
	s.surface = surface
	s.preview = preview
	s.selector.attach(surface)

	sess.notify(ctx, s.role, MsgChooseFace)
	return surface, nil
}

func (s *Slot) buildSurface(sess *Session, kind MediaKind, file MediaFile) (*Surface, []byte, error) {
	boxW, boxH := sess.PreviewWidth, sess.PreviewHeight
	if boxW <= 0 || boxH <= 0 {
		boxW, boxH = constants.DefaultPreviewWidth, constants.DefaultPreviewHeight
	}

	if kind == KindVideo {
		return VideoSurface(file.Duration, boxW, boxH), nil, nil
	}

	r, err := file.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("could not open media: %w", err)
	}
	defer r.Close()

	// one read serves both the header parse and the preview
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read media: %w", err)
	}

	surface, err := ImageSurface(bytes.NewReader(data), boxW, boxH)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnreadableMedia, err)
	}
	preview, err := RenderPreview(bytes.NewReader(data), surface.Width, surface.Height)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnreadableMedia, err)
	}
	return surface, preview, nil
}

func (s *Slot) upload(ctx context.Context, sess *Session, file MediaFile) (string, error) {
	if sess.Uploader == nil {
		name := synth.SecureFilename(file.Name)
		if name == "" {
			return "", fmt.Errorf("%q: %w", file.Name, synth.ErrEmptyFilename)
		}
		return name, nil
	}

	r, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("could not open media: %w", err)
	}
	defer r.Close()

	var progress func(int64)
	if sess.UploadProgress != nil {
		progress = func(sent int64) { sess.UploadProgress(s.role, sent, file.Size) }
	}

	name, err := sess.Uploader.UploadTmp(ctx, file.Name, r, sess.UploadChunkSize, progress)
	if err != nil {
		return "", fmt.Errorf("could not upload %s media: %w", s.role, err)
	}
	return name, nil
}

// Scrub moves a video to pos seconds. Selection is kept: markers are
// positions on the surface, not on a frame.
func (s *Slot) Scrub(pos float64) error {
	tl, err := s.timeline()
	if err != nil {
		return err
	}
	tl.Scrub(pos)
	return nil
}

// SetRange sets the part of a video that is used.
func (s *Slot) SetRange(start, end float64) error {
	tl, err := s.timeline()
	if err != nil {
		return err
	}
	return tl.SetRange(start, end)
}

func (s *Slot) timeline() (*Timeline, error) {
	if !s.media.Loaded() {
		return nil, ErrNoMedia
	}
	if s.surface == nil || s.surface.Timeline == nil {
		return nil, ErrNotVideo
	}
	return s.surface.Timeline, nil
}
