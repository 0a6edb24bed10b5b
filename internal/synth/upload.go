package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kozaktomas/faceswap/internal/constants"
)

// ErrEmptyFilename is returned when a file name has no characters the backend accepts.
var ErrEmptyFilename = errors.New("file name has no usable characters")

// UploadTmp uploads media to the backend tmp folder in chunks of chunkSize
// bytes. The backend appends chunks to the same file, so a name must not be
// reused for different media. Returns the name the backend stored the file under.
// progress, when not nil, is called with the total number of bytes sent so far.
func (c *Client) UploadTmp(ctx context.Context, name string, r io.Reader, chunkSize int, progress func(sent int64)) (string, error) {
	storedName := SecureFilename(name)
	if storedName == "" {
		return "", fmt.Errorf("%q: %w", name, ErrEmptyFilename)
	}
	if chunkSize <= 0 {
		chunkSize = constants.DefaultUploadChunkSize
	}

	buf := make([]byte, chunkSize)
	var sent int64
	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			if err := c.uploadChunk(ctx, storedName, buf[:n]); err != nil {
				return "", err
			}
			sent += int64(n)
			if progress != nil {
				progress(sent)
			}
		}
		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("could not read media: %w", readErr)
		}
	}

	if sent == 0 {
		// an empty file still needs to exist on the backend
		if err := c.uploadChunk(ctx, storedName, nil); err != nil {
			return "", err
		}
	}

	return storedName, nil
}

func (c *Client) uploadChunk(ctx context.Context, name string, chunk []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := part.Write(chunk); err != nil {
		return fmt.Errorf("could not copy chunk data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("could not close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL(constants.EndpointUploadTmp), &body)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req) //nolint:gosec // URL constructed from validated parsedURL via resolveURL
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Endpoint: constants.EndpointUploadTmp, Code: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
