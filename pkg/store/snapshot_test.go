package store

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReadSnapshot(t *testing.T) {
	u, _ := url.Parse("http://example.test/a")
	resp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(`{"a":1}`))),
		Request:    &http.Request{URL: u},
	}

	snap, err := ReadSnapshot(resp)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}

	if string(snap.Body) != `{"a":1}` {
		t.Errorf("Body = %q", snap.Body)
	}
	if snap.StatusCode != 200 {
		t.Errorf("StatusCode = %d", snap.StatusCode)
	}
	if snap.URL != "http://example.test/a" {
		t.Errorf("URL = %q", snap.URL)
	}
	if snap.Headers.Get("Content-Type") != "application/json" {
		t.Errorf("Headers not copied")
	}

	// Body must be readable again.
	again, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("re-read failed: %v", err)
	}
	if string(again) != `{"a":1}` {
		t.Errorf("restored body = %q", again)
	}
}

func TestReadSnapshot_Errors(t *testing.T) {
	if _, err := ReadSnapshot(nil); err == nil {
		t.Error("expected error for nil response")
	}

	resp := &http.Response{StatusCode: 200, Body: io.NopCloser(failingReader{})}
	if _, err := ReadSnapshot(resp); err == nil {
		t.Error("expected error for failing body")
	}
}

func TestReadSnapshot_NilBody(t *testing.T) {
	snap, err := ReadSnapshot(&http.Response{StatusCode: 204})
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if len(snap.Body) != 0 {
		t.Errorf("Body = %q, want empty", snap.Body)
	}
}
