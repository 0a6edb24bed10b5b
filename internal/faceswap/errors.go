package faceswap

import (
	"errors"
	"fmt"
	"strings"
)

// Submission failures. All of them leave the panel open and the controller idle.
var (
	ErrBackendBusy          = errors.New("backend is busy with another job")
	ErrMissingMedia         = errors.New("media not loaded")
	ErrMissingFaceSelection = errors.New("no face selected")
	ErrStatusCheck          = errors.New("could not check backend status")
	ErrNotIdle              = errors.New("submission already in progress")
)

// Slot and panel interaction errors.
var (
	ErrNoMedia          = errors.New("slot has no media")
	ErrNotVideo         = errors.New("slot media is not a video")
	ErrOutsideSurface   = errors.New("point is outside the preview surface")
	ErrInvalidRange     = errors.New("invalid time range")
	ErrUnknownToggle    = errors.New("unknown toggle")
	ErrUnknownRole      = errors.New("unknown slot role")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrUnreadableMedia  = errors.New("media could not be decoded")
	ErrPanelClosed      = errors.New("panel is closed")
)

// ValidationError names the slots that failed a validation step.
type ValidationError struct {
	Err   error
	Roles []Role
}

func (e *ValidationError) Error() string {
	roles := make([]string, len(e.Roles))
	for i, r := range e.Roles {
		roles[i] = string(r)
	}
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(roles, ", "))
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// FailedRoles returns the roles named by a *ValidationError in err's chain.
func FailedRoles(err error) []Role {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Roles
	}
	return nil
}
