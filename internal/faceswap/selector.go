package faceswap

import "fmt"

// FaceSelector records face markers on a slot's preview surface.
type FaceSelector struct {
	role    Role
	surface *Surface
	points  []Point
}

func NewFaceSelector(role Role) *FaceSelector {
	return &FaceSelector{role: role}
}

// attach binds the selector to a new surface and drops every marker.
func (fs *FaceSelector) attach(surface *Surface) {
	fs.surface = surface
	fs.points = nil
}

// Click records one marker at (x, y) in surface coordinates.
func (fs *FaceSelector) Click(x, y float64) error {
	if fs.surface == nil {
		return ErrNoMedia
	}
	if !fs.surface.Contains(x, y) {
		return fmt.Errorf("%w: (%.1f, %.1f) on %dx%d", ErrOutsideSurface, x, y, fs.surface.Width, fs.surface.Height)
	}
	fs.points = append(fs.points, Point{
		X:            x,
		Y:            y,
		CanvasWidth:  fs.surface.Width,
		CanvasHeight: fs.surface.Height,
	})
	return nil
}

// SelectAllFaces returns a selection holding only the origin point flagged
// AllFaces. The recorded markers are left as they are.
func (fs *FaceSelector) SelectAllFaces() (FaceSelection, error) {
	if fs.surface == nil {
		return FaceSelection{}, ErrNoMedia
	}
	return FaceSelection{Role: fs.role, Points: []Point{{
		X:            0,
		Y:            0,
		CanvasWidth:  fs.surface.Width,
		CanvasHeight: fs.surface.Height,
		AllFaces:     true,
	}}}, nil
}

// Selection returns a copy of the recorded markers.
func (fs *FaceSelector) Selection() FaceSelection {
	points := make([]Point, len(fs.points))
	copy(points, fs.points)
	return FaceSelection{Role: fs.role, Points: points}
}

func (fs *FaceSelector) HasSelection() bool {
	return len(fs.points) > 0
}

// Clear drops the markers but keeps the surface.
func (fs *FaceSelector) Clear() {
	fs.points = nil
}
