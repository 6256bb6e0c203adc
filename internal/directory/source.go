package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxSnapshotBytes bounds the size of a directory response.
const maxSnapshotBytes = 8 << 20

// ErrFetchFailed is returned when the directory cannot be read.
var ErrFetchFailed = errors.New("directory: fetch failed")

// Grant is one remote authorization. ExternalID identifies it across syncs
// and must be unique per device.
type Grant struct {
	ExternalID   string     `json:"external_id"`
	DeviceID     string     `json:"device_id"`
	Name         string     `json:"name,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidUntil   *time.Time `json:"valid_until,omitempty"`
}

// Snapshot is the complete set of grants the directory wants in place.
type Snapshot struct {
	Grants []Grant `json:"grants"`
}

// Source supplies directory snapshots.
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}

// HTTPSource reads a JSON snapshot from an HTTP endpoint.
type HTTPSource struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPSource returns a source that GETs url, sending token as a bearer
// credential when non-empty.
func NewHTTPSource(url, token string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and decodes one snapshot.
func (s *HTTPSource) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	var snap Snapshot
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSnapshotBytes)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: decoding snapshot: %w", ErrFetchFailed, err)
	}
	return &snap, nil
}
