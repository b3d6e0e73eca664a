// Package api is the HTTP client for the pattern generation backend: it
// requests generation with the musical and DNA parameters, and fetches the
// resulting MIDI file bytes.
package api

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

	"github.com/google/uuid"
)

// ErrFetch is returned for network failures and non-2xx responses.
var ErrFetch = errors.New("failed to fetch from backend")

// GenerateRequest carries the generation parameters. The DNA knobs
// (density, complexity, groove, evolution) are opaque to this client; the
// backend interprets them.
type GenerateRequest struct {
	Description  string  `json:"description,omitempty"`
	Style        string  `json:"style"`
	Instrument   string  `json:"instrument,omitempty"`
	BPM          int     `json:"bpm"`
	Bars         int     `json:"bars"`
	Seed         *int64  `json:"seed,omitempty"`
	Density      float64 `json:"density"`
	Complexity   float64 `json:"complexity"`
	Groove       float64 `json:"groove"`
	Evolution    float64 `json:"evolution"`
	MusicalKey   string  `json:"musical_key"`
	MusicalScale string  `json:"musical_scale"`
}

// GenerateResponse is the backend's reply; DownloadURL points at the
// generated MIDI file, relative to the API base.
type GenerateResponse struct {
	Success      bool           `json:"success"`
	GenerationID int64          `json:"generation_id"`
	FilePath     string         `json:"file_path"`
	DownloadURL  string         `json:"download_url"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata"`
}

// Client talks to the generation backend. A zero token disables the
// Authorization header; the token itself is issued by the auth subsystem,
// which this client does not implement.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given API base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Generate requests a new MIDI pattern and returns the backend's response.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/integrated-midi/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setCommonHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: generate returned HTTP %d", ErrFetch, resp.StatusCode)
	}

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid generate response: %v", ErrFetch, err)
	}
	return &out, nil
}

// FetchMIDI downloads the raw bytes of a MIDI file. Relative URLs are
// resolved against the API base. Non-2xx responses are load failures.
func (c *Client) FetchMIDI(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "/") {
		url = c.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	c.setCommonHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d fetching %s", ErrFetch, resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return data, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
