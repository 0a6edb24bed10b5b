package synth

import "github.com/kozaktomas/faceswap/internal/constants"

// ProcessStatus is the backend's job status report.
type ProcessStatus struct {
	StatusCode int `json:"status_code"`
}

// Busy reports whether the backend already has a job in flight.
func (s *ProcessStatus) Busy() bool {
	return s.StatusCode != constants.StatusCodeIdle
}

// FacePoint is one face marker in surface coordinates, together with the
// surface size so the backend can scale it to the media's natural size.
type FacePoint struct {
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	CanvasWidth  int     `json:"canvasWidth"`
	CanvasHeight int     `json:"canvasHeight"`
}

// FaceSwapRequest is the body of POST /synthesize_face_swap/.
// Video fields are omitted for image media.
type FaceSwapRequest struct {
	FaceTargetFields       []FacePoint `json:"face_target_fields"`
	TargetContent          string      `json:"target_content"`
	VideoStartTarget       *float64    `json:"video_start_target,omitempty"`
	VideoEndTarget         *float64    `json:"video_end_target,omitempty"`
	TypeFileTarget         string      `json:"type_file_target"`
	FaceSourceFields       []FacePoint `json:"face_source_fields"`
	SourceContent          string      `json:"source_content"`
	VideoCurrentTimeSource *float64    `json:"video_current_time_source,omitempty"`
	VideoEndSource         *float64    `json:"video_end_source,omitempty"`
	TypeFileSource         string      `json:"type_file_source"`
	Multiface              bool        `json:"multiface"`
	Similarface            bool        `json:"similarface"`
	SimilarCoeff           string      `json:"similar_coeff"`
}

// SubmitResponse is what the backend answers once a face swap job ends.
// A status other than 200 means the job was refused (another job running,
// missing ffmpeg) or failed; failures also show up in the results list.
type SubmitResponse struct {
	Status int `json:"status"`
}

// OK reports whether the backend accepted and finished the job.
func (r *SubmitResponse) OK() bool {
	return r.Status == constants.StatusCodeIdle
}

// InspectResult describes model availability for offline use.
type InspectResult struct {
	OfflineStatus bool   `json:"offline_status"`
	Message       string `json:"models_is_not_exist"`
}

// ResultsResponse is the body of GET /synthesize_result/.
type ResultsResponse struct {
	ResponseCode int               `json:"response_code"`
	Response     []SynthesisResult `json:"response"`
}

// SynthesisResult is one finished (or failed) synthesis job.
type SynthesisResult struct {
	Mode               string `json:"mode"`
	RequestMode        string `json:"request_mode"`
	ResponseURL        string `json:"response_url"`
	RequestDate        string `json:"request_date"`
	RequestInformation string `json:"request_information"`
}

// Failed reports whether the job ended without producing media.
func (r *SynthesisResult) Failed() bool {
	return r.ResponseURL == ""
}

// UploadResponse is the body returned for each uploaded chunk.
type UploadResponse struct {
	Status string `json:"status"`
}
