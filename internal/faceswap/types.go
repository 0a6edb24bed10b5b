// Package faceswap implements the face swap panel: two media slots with face
// selection, the matching parameters and the submission state machine that
// validates everything and dispatches a job to the synthesis backend.
package faceswap

import (
	"fmt"
	"mime"
	"strings"
)

// Role identifies one of the two media slots of a face swap job.
type Role string

const (
	RoleTarget Role = "target"
	RoleSource Role = "source"
)

// Roles lists the slot roles in the order they are validated.
var Roles = []Role{RoleTarget, RoleSource}

// ParseRole converts a string to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case RoleTarget:
		return RoleTarget, nil
	case RoleSource:
		return RoleSource, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// MediaKind is the kind of media in a slot. Values match the backend's type_file_* fields.
type MediaKind string

const (
	KindImage MediaKind = "img"
	KindVideo MediaKind = "video"
)

// KindFromContentType maps a MIME type to a MediaKind.
func KindFromContentType(contentType string) (MediaKind, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, contentType)
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return KindImage, nil
	case strings.HasPrefix(mediaType, "video/"):
		return KindVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMedia, mediaType)
	}
}

// MediaSlot is the media currently loaded into a slot.
// The time fields are set for video only (seconds).
type MediaSlot struct {
	Name        string    `json:"name"`
	Kind        MediaKind `json:"kind,omitempty"`
	StartTime   *float64  `json:"start_time,omitempty"`
	EndTime     *float64  `json:"end_time,omitempty"`
	CurrentTime *float64  `json:"current_time,omitempty"`
}

// Loaded reports whether the slot holds media.
func (m MediaSlot) Loaded() bool {
	return m.Name != ""
}

// Point is one face marker in surface coordinates.
// AllFaces marks the origin convention point meaning "every face in the media".
type Point struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	CanvasWidth  int     `json:"canvas_width"`
	CanvasHeight int     `json:"canvas_height"`
	AllFaces     bool    `json:"all_faces,omitempty"`
}

// FaceSelection is the set of face markers recorded on a slot since its media was loaded.
type FaceSelection struct {
	Role   Role    `json:"role"`
	Points []Point `json:"points"`
}

// Complete reports whether at least one face marker was recorded.
func (s FaceSelection) Complete() bool {
	return len(s.Points) > 0
}

func float64Ptr(v float64) *float64 {
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return float64Ptr(*p)
}
