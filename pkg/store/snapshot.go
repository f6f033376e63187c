package store

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Snapshot is a buffered copy of a response.
type Snapshot struct {
	// URL is the final request URL.
	URL string `json:"url"`

	// StatusCode is the HTTP status code.
	StatusCode int `json:"status_code"`

	// Headers are the response headers.
	Headers http.Header `json:"headers"`

	// Body is the full response body.
	Body []byte `json:"body"`

	// ReceivedAt is when the body finished reading.
	ReceivedAt time.Time `json:"received_at"`
}

// ReadSnapshot reads the whole body of resp and returns it as a Snapshot.
// The response body is restored after reading so callers can read it again.
func ReadSnapshot(resp *http.Response) (*Snapshot, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))

	snap := &Snapshot{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       body,
		ReceivedAt: time.Now(),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		snap.URL = resp.Request.URL.String()
	}

	return snap, nil
}
