// Package insight is the HTTP client for the face-extraction sidecar. The
// sidecar owns the detection and embedding models; this client only moves
// bytes and classifies failures.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/observability"
)

const maxErrorBody = 4 << 10

// Client calls the extraction sidecar. Implements domain.Extractor.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// NewClient creates an extractor client from configuration (DI constructor).
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type extractResponse struct {
	Faces []struct {
		Box       domain.BoundingBox `json:"box"`
		Embedding domain.Embedding   `json:"embedding"`
	} `json:"faces"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Extract posts the image to the sidecar and returns one detection per face.
// No faces is an empty slice, not an error. Input the sidecar cannot decode
// fails with ErrUnsupportedImage; sidecar failures, transport errors, and
// deadline hits fail with ErrUpstream.
func (c *Client) Extract(ctx context.Context, image []byte, format string) ([]domain.Detection, error) {
	if len(image) == 0 {
		return nil, domain.ValidationError("image is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(image))
	if err != nil {
		return nil, domain.UpstreamError(err)
	}
	req.Header.Set("Content-Type", contentType(format))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, domain.UpstreamError(fmt.Errorf("extractor timed out after %s", c.timeout))
		}
		return nil, domain.UpstreamError(err)
	}
	defer resp.Body.Close()

	observability.FromContext(ctx).Debug("extractor call finished",
		observability.Int("status", resp.StatusCode),
		observability.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnsupportedMediaType || resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedImage, readError(resp.Body))
	default:
		return nil, domain.UpstreamError(fmt.Errorf("extractor returned %d: %s", resp.StatusCode, readError(resp.Body)))
	}

	var parsed extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.UpstreamError(fmt.Errorf("decode extractor response: %w", err))
	}

	detections := make([]domain.Detection, 0, len(parsed.Faces))
	for _, face := range parsed.Faces {
		detections = append(detections, domain.Detection{
			Box:       face.Box,
			Embedding: face.Embedding,
		})
	}

	return detections, nil
}

func contentType(format string) string {
	format = strings.ToLower(strings.TrimPrefix(format, "."))
	switch format {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "jpg", "jpeg", "":
		return "image/jpeg"
	default:
		return "image/" + format
	}
}

func readError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return "no detail"
	}

	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(data)
}
