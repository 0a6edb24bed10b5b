package faceswap

import (
	"context"
	"log"
	"sync"

	"github.com/kozaktomas/faceswap/internal/synth"
)

// Panel is one face swap panel: both slots, the parameters and the
// controller. Operations are serialized, matching a single UI thread.
type Panel struct {
	mu         sync.Mutex
	id         string
	sess       *Session
	target     *Slot
	source     *Slot
	params     *ParameterPanel
	controller *Controller
	note       *synth.InspectResult
	open       bool
}

// NewPanel creates a closed panel. sess.PanelID is set to id.
func NewPanel(id string, sess *Session) *Panel {
	sess.PanelID = id
	target := NewSlot(RoleTarget)
	source := NewSlot(RoleSource)
	params := NewParameterPanel()
	return &Panel{
		id:         id,
		sess:       sess,
		target:     target,
		source:     source,
		params:     params,
		controller: NewController(sess, target, source, params),
	}
}

func (p *Panel) ID() string { return p.id }

func (p *Panel) Controller() *Controller { return p.controller }

// Open resets the panel and queries model availability once. A failed query
// is logged and leaves the note empty.
func (p *Panel) Open(ctx context.Context) *synth.InspectResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reset()
	p.open = true

	ctx, cancel := p.sess.withStatusTimeout(ctx)
	defer cancel()

	note, err := p.sess.Backend.Inspect(ctx, p.sess.InspectEndpoint)
	if err != nil {
		log.Printf("faceswap: could not inspect models for panel %s: %v", p.id, err)
		return nil
	}
	p.note = note
	return note
}

// Close discards all panel state without telling the backend.
func (p *Panel) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return
	}
	p.reset()
	p.open = false
	if p.sess.Panel != nil {
		p.sess.Panel.Close()
	}
}

func (p *Panel) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.open
}

func (p *Panel) reset() {
	p.target.Reset()
	p.source.Reset()
	p.params.Reset()
	p.controller.Reset()
	p.note = nil
	for _, role := range Roles {
		p.sess.clearStatus(role)
	}
}

func (p *Panel) slot(role Role) *Slot {
	if role == RoleTarget {
		return p.target
	}
	return p.source
}

// LoadMedia loads a file into a slot.
func (p *Panel) LoadMedia(ctx context.Context, role Role, file MediaFile) (*Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil, ErrPanelClosed
	}
	return p.slot(role).LoadMedia(ctx, p.sess, file)
}

// Click records a face marker on a slot.
func (p *Panel) Click(role Role, x, y float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPanelClosed
	}
	return p.slot(role).Selector().Click(x, y)
}

// ClearSelection drops the face markers of a slot.
func (p *Panel) ClearSelection(role Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPanelClosed
	}
	p.slot(role).Selector().Clear()
	return nil
}

// Scrub moves a video slot to pos seconds.
func (p *Panel) Scrub(role Role, pos float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPanelClosed
	}
	return p.slot(role).Scrub(pos)
}

// SetRange trims a video slot.
func (p *Panel) SetRange(role Role, start, end float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPanelClosed
	}
	return p.slot(role).SetRange(start, end)
}

func (p *Panel) SetToggle(name string, checked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPanelClosed
	}
	return p.params.SetToggle(name, checked)
}

func (p *Panel) SetSimilarCoeff(raw string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return ErrPanelClosed
	}
	p.params.SetSimilarCoeff(raw)
	return nil
}

// Submit runs the controller. After a successful dispatch the panel is closed
// and its state discarded; on failure it stays open as it was.
func (p *Panel) Submit(ctx context.Context) (*JobRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil, ErrPanelClosed
	}

	req, err := p.controller.Submit(ctx)
	if err != nil {
		return nil, err
	}

	p.target.Reset()
	p.source.Reset()
	p.params.Reset()
	p.note = nil
	p.open = false
	return req, nil
}

// Preview returns the JPEG preview of a slot's image.
func (p *Panel) Preview(role Role) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	preview := p.slot(role).Preview()
	return preview, preview != nil
}

// SlotView is the JSON view of a slot.
type SlotView struct {
	Media     MediaSlot     `json:"media"`
	Surface   *Surface      `json:"surface,omitempty"`
	Selection FaceSelection `json:"selection"`
}

// PanelView is the JSON view of a panel.
type PanelView struct {
	ID     string               `json:"id"`
	Open   bool                 `json:"open"`
	State  State                `json:"state"`
	Note   *synth.InspectResult `json:"note,omitempty"`
	Target SlotView             `json:"target"`
	Source SlotView             `json:"source"`
	Params ParameterState       `json:"params"`
}

// Slot returns the view of one slot.
func (v PanelView) Slot(role Role) SlotView {
	if role == RoleSource {
		return v.Source
	}
	return v.Target
}

func (p *Panel) View() PanelView {
	p.mu.Lock()
	defer p.mu.Unlock()

	view := func(s *Slot) SlotView {
		var surface *Surface
		if s.Surface() != nil {
			cp := *s.Surface()
			if cp.Timeline != nil {
				tl := *cp.Timeline
				cp.Timeline = &tl
			}
			surface = &cp
		}
		return SlotView{Media: s.Media(), Surface: surface, Selection: s.Selector().Selection()}
	}

	return PanelView{
		ID:     p.id,
		Open:   p.open,
		State:  p.controller.State(),
		Note:   p.note,
		Target: view(p.target),
		Source: view(p.source),
		Params: p.params.State(),
	}
}
