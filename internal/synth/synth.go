package synth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kozaktomas/faceswap/internal/constants"
)

// ProcessStatus asks the backend whether a synthesis job is running.
func (c *Client) ProcessStatus(ctx context.Context) (*ProcessStatus, error) {
	status, err := doGetJSON[ProcessStatus](ctx, c, constants.EndpointProcessStatus)
	if err != nil {
		return nil, fmt.Errorf("could not fetch process status: %w", err)
	}
	return status, nil
}

// SubmitFaceSwap posts a face swap job. The backend holds the request open
// until the job finishes, so callers usually run this in its own goroutine.
func (c *Client) SubmitFaceSwap(ctx context.Context, req *FaceSwapRequest) (*SubmitResponse, error) {
	resp, err := doRequestJSON[SubmitResponse](ctx, c, http.MethodPost, constants.EndpointFaceSwap, req, http.StatusOK)
	if err != nil {
		return nil, fmt.Errorf("could not submit face swap: %w", err)
	}
	return resp, nil
}

// Inspect queries a model availability endpoint such as "inspect_face_swap".
func (c *Client) Inspect(ctx context.Context, endpoint string) (*InspectResult, error) {
	if endpoint == "" {
		endpoint = constants.DefaultInspectEndpoint
	}
	result, err := doGetJSON[InspectResult](ctx, c, strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("could not inspect models: %w", err)
	}
	return result, nil
}

// Results lists synthesis results kept by the backend since it started.
func (c *Client) Results(ctx context.Context) ([]SynthesisResult, error) {
	resp, err := doGetJSON[ResultsResponse](ctx, c, constants.EndpointResults)
	if err != nil {
		return nil, fmt.Errorf("could not fetch results: %w", err)
	}
	return resp.Response, nil
}

// FaceSwapResults returns only results produced by face swap style jobs.
func (c *Client) FaceSwapResults(ctx context.Context) ([]SynthesisResult, error) {
	all, err := c.Results(ctx)
	if err != nil {
		return nil, err
	}
	var out []SynthesisResult
	for _, r := range all {
		if r.RequestMode == constants.ResultModeFaceSwap {
			out = append(out, r)
		}
	}
	return out, nil
}
