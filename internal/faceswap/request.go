package faceswap

import (
	"slices"

	"github.com/kozaktomas/faceswap/internal/synth"
)

// JobRequest is the snapshot of both slots and the parameters taken at submission.
// It shares no memory with the panel.
type JobRequest struct {
	Target      MediaSlot      `json:"target"`
	Source      MediaSlot      `json:"source"`
	TargetFaces FaceSelection  `json:"target_faces"`
	SourceFaces FaceSelection  `json:"source_faces"`
	Params      ParameterState `json:"params"`
}

// BuildJobRequest snapshots the slots' media together with the resolved face
// selections and the parameters.
func BuildJobRequest(target, source *Slot, targetFaces, sourceFaces FaceSelection, params ParameterState) JobRequest {
	return JobRequest{
		Target:      copyMedia(target.Media()),
		Source:      copyMedia(source.Media()),
		TargetFaces: copySelection(targetFaces),
		SourceFaces: copySelection(sourceFaces),
		Params:      params,
	}
}

func copySelection(sel FaceSelection) FaceSelection {
	sel.Points = slices.Clone(sel.Points)
	return sel
}

func copyMedia(m MediaSlot) MediaSlot {
	m.StartTime = copyFloat(m.StartTime)
	m.EndTime = copyFloat(m.EndTime)
	m.CurrentTime = copyFloat(m.CurrentTime)
	return m
}

// Payload converts the snapshot into the backend request body. For the
// target the trimmed range is sent, for the source the frame the face was
// picked on and the end of the video.
func (r JobRequest) Payload() *synth.FaceSwapRequest {
	return &synth.FaceSwapRequest{
		FaceTargetFields:       facePoints(r.TargetFaces),
		TargetContent:          r.Target.Name,
		VideoStartTarget:       copyFloat(r.Target.StartTime),
		VideoEndTarget:         copyFloat(r.Target.EndTime),
		TypeFileTarget:         string(r.Target.Kind),
		FaceSourceFields:       facePoints(r.SourceFaces),
		SourceContent:          r.Source.Name,
		VideoCurrentTimeSource: copyFloat(r.Source.CurrentTime),
		VideoEndSource:         copyFloat(r.Source.EndTime),
		TypeFileSource:         string(r.Source.Kind),
		Multiface:              r.Params.Multiface,
		Similarface:            r.Params.Similarface,
		SimilarCoeff:           r.Params.SimilarCoeff,
	}
}

func facePoints(sel FaceSelection) []synth.FacePoint {
	points := make([]synth.FacePoint, len(sel.Points))
	for i, p := range sel.Points {
		points[i] = synth.FacePoint{X: p.X, Y: p.Y, CanvasWidth: p.CanvasWidth, CanvasHeight: p.CanvasHeight}
	}
	return points
}
