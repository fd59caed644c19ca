package streaming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jumpcut/jumpcut-engine/internal/edl"
)

// BuilderClient talks to the manifest builder service.
type BuilderClient interface {
	// Status returns the build status for one EDL hash.
	Status(ctx context.Context, edlHash string) (BuildStatus, error)
	// RequestBuild asks the builder to start building for the given ranges.
	// Idempotent for an already-built or in-progress hash.
	RequestBuild(ctx context.Context, edlHash string, clips []edl.Clip) error
}

// HTTPBuilderClient is the production BuilderClient over the builder's REST
// endpoints.
type HTTPBuilderClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPBuilderClient builds a client for the given base URL.
func NewHTTPBuilderClient(baseURL string, logger *slog.Logger) *HTTPBuilderClient {
	return &HTTPBuilderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPBuilderClient) Status(ctx context.Context, edlHash string) (BuildStatus, error) {
	url := fmt.Sprintf("%s/edl/%s/status", c.baseURL, edlHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return BuildStatus{}, fmt.Errorf("create status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BuildStatus{}, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return BuildStatus{State: BuildNotBuilt, EDLHash: edlHash}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return BuildStatus{}, fmt.Errorf("status request: HTTP %d: %s", resp.StatusCode, body)
	}

	var status BuildStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return BuildStatus{}, fmt.Errorf("decode status: %w", err)
	}
	if !status.Valid() {
		return BuildStatus{}, fmt.Errorf("unknown build state %q for %s", status.State, edlHash)
	}
	return status, nil
}

func (c *HTTPBuilderClient) RequestBuild(ctx context.Context, edlHash string, clips []edl.Clip) error {
	type rangePayload struct {
		SourceRef string  `json:"source_ref"`
		Start     float64 `json:"start"`
		End       float64 `json:"end"`
	}
	payload := struct {
		EDLHash string         `json:"edl_hash"`
		Ranges  []rangePayload `json:"ranges"`
	}{EDLHash: edlHash}
	for _, clip := range clips {
		payload.Ranges = append(payload.Ranges, rangePayload{
			SourceRef: clip.SourceRef,
			Start:     clip.StartTime,
			End:       clip.EndTime,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal build request: %w", err)
	}

	url := fmt.Sprintf("%s/edl/%s/build", c.baseURL, edlHash)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Info("requesting unified manifest build", "edl_hash", edlHash, "clips", len(clips))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("build request: HTTP %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
