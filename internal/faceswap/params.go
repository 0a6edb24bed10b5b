package faceswap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kozaktomas/faceswap/internal/constants"
)

// Toggle names accepted by ParameterPanel.SetToggle.
const (
	ToggleMultiface   = "multiface"
	ToggleSimilarface = "similarface"
)

// ParameterState is a snapshot of the matching parameters.
type ParameterState struct {
	Multiface    bool   `json:"multiface"`
	Similarface  bool   `json:"similarface"`
	SimilarCoeff string `json:"similar_coeff"`
}

// CoeffInRange reports whether the coefficient parses into the range the control allows.
// Informational only: the raw value is sent as entered.
func (s ParameterState) CoeffInRange() bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.SimilarCoeff), 64)
	if err != nil {
		return false
	}
	return v >= constants.MinSimilarCoeff && v <= constants.MaxSimilarCoeff
}

// ParameterPanel holds the multiface/similarface toggles and the similarity coefficient.
// The two toggles are mutually exclusive: the one checked last wins.
type ParameterPanel struct {
	state ParameterState
}

func NewParameterPanel() *ParameterPanel {
	return &ParameterPanel{state: ParameterState{SimilarCoeff: constants.DefaultSimilarCoeff}}
}

// SetToggle checks or unchecks a toggle. Checking one unchecks the other.
func (p *ParameterPanel) SetToggle(name string, checked bool) error {
	switch name {
	case ToggleMultiface:
		p.state.Multiface = checked
		if checked {
			p.state.Similarface = false
		}
	case ToggleSimilarface:
		p.state.Similarface = checked
		if checked {
			p.state.Multiface = false
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownToggle, name)
	}
	return nil
}

// SetSimilarCoeff stores the coefficient as entered. No clamping.
func (p *ParameterPanel) SetSimilarCoeff(raw string) {
	p.state.SimilarCoeff = raw
}

func (p *ParameterPanel) State() ParameterState {
	return p.state
}

// Reset restores the defaults.
func (p *ParameterPanel) Reset() {
	p.state = ParameterState{SimilarCoeff: constants.DefaultSimilarCoeff}
}
