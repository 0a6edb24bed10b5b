// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Backend endpoint paths, relative to the backend base URL.
const (
	// EndpointProcessStatus reports whether a synthesis job is in flight
	EndpointProcessStatus = "synthesize_process/"

	// EndpointFaceSwap accepts a face swap job
	EndpointFaceSwap = "synthesize_face_swap/"

	// EndpointUploadTmp receives media files in chunks
	EndpointUploadTmp = "upload_tmp"

	// EndpointResults lists finished synthesis results
	EndpointResults = "synthesize_result/"

	// DefaultInspectEndpoint reports model availability, queried when a panel opens.
	// Backends that split it per feature also serve "inspect_face_swap".
	DefaultInspectEndpoint = "inspect_face_animation"
)

// StatusCodeIdle is the status_code the backend reports when no job is running.
const StatusCodeIdle = 200

// Parameter constants
const (
	// DefaultSimilarCoeff is the initial value of the facial similarity coefficient
	DefaultSimilarCoeff = "1.2"

	// MinSimilarCoeff and MaxSimilarCoeff bound the similarity coefficient control
	MinSimilarCoeff = 0.1
	MaxSimilarCoeff = 3.0
)

// Preview surface constants
const (
	// DefaultPreviewWidth is the width of the box media previews are fitted into
	DefaultPreviewWidth = 640

	// DefaultPreviewHeight is the height of the box media previews are fitted into
	DefaultPreviewHeight = 480

	// PreviewJPEGQuality is the quality used when encoding preview thumbnails
	PreviewJPEGQuality = 85
)

// Transport constants
const (
	// DefaultUploadChunkSize is the chunk size for media uploads (the backend appends chunks)
	DefaultUploadChunkSize = 5 * 1024 * 1024

	// DefaultStatusTimeout bounds the busy check and the inspector query
	DefaultStatusTimeout = 10 * time.Second

	// ResultPollInterval is the delay between result polls in follow mode
	ResultPollInterval = 2 * time.Second

	// MaxUploadSize is the maximum size for media uploads to the panel server (1GB)
	MaxUploadSize = 1 << 30

	// MaxMultipartMemory is the part of a multipart upload kept in memory
	MaxMultipartMemory = 32 << 20
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// ResultModeFaceSwap is the request_mode the backend uses for face swap results.
const ResultModeFaceSwap = "deepfake"
