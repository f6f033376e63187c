package client

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/batchhttp/internal/testutil"
	"github.com/Sternrassler/batchhttp/pkg/pool"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
)

const testBase = "http://batch.test"

// newTestClient builds a quiet client over transport with a short fixed
// backoff. mutate may adjust the config before New.
func newTestClient(t *testing.T, transport http.RoundTripper, mutate func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = testBase
	cfg.Transport = transport
	cfg.Quiet = true
	cfg.Policy.Backoff = Backoff{Delay: 10 * time.Millisecond}
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrent != pool.DefaultMaxConcurrent {
		t.Errorf("MaxConcurrent = %d, want %d", cfg.MaxConcurrent, pool.DefaultMaxConcurrent)
	}
	if cfg.Timeout != pool.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, pool.DefaultTimeout)
	}
	if cfg.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", cfg.Method)
	}
	if cfg.Policy.Backoff.Delay != DefaultRetryDelay {
		t.Errorf("Backoff.Delay = %v, want %v", cfg.Policy.Backoff.Delay, DefaultRetryDelay)
	}
	if !cfg.Policy.OnlyAccept200 {
		t.Error("default policy should retry until a 200 arrives")
	}
	if len(cfg.Policy.CaptureStatus) != 0 {
		t.Errorf("CaptureStatus = %v, want none", cfg.Policy.CaptureStatus)
	}
}

func TestNew_Normalizes(t *testing.T) {
	c := New(Config{MaxConcurrent: -1, Timeout: -time.Second, Delay: -time.Second, Method: "bogus", BaseURL: "::not a url"})
	cfg := c.Config()

	if cfg.MaxConcurrent != pool.DefaultMaxConcurrent {
		t.Errorf("MaxConcurrent = %d", cfg.MaxConcurrent)
	}
	if cfg.Timeout != pool.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, pool.DefaultTimeout)
	}
	if cfg.Delay != 0 {
		t.Errorf("Delay = %v, want 0", cfg.Delay)
	}
	if cfg.Method != http.MethodGet {
		t.Errorf("Method = %q, want GET", cfg.Method)
	}
	if c.resolver.Base != nil {
		t.Error("malformed base URL should be dropped")
	}
	if cfg.Policy.Backoff.Delay != DefaultRetryDelay {
		t.Errorf("zero backoff should get the default delay, got %v", cfg.Policy.Backoff.Delay)
	}
}

func TestNew_ZeroMeansUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrent = 0
	cfg.Timeout = 0

	c := New(cfg)
	pc := c.PoolConfig()
	if pc.MaxConcurrent != 0 {
		t.Errorf("MaxConcurrent = %d, want 0 (no cap)", pc.MaxConcurrent)
	}
	if pc.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0 (no timeout)", pc.Timeout)
	}

	p := c.OpenPool()
	defer p.Close()
	if got := p.Config(); got.MaxConcurrent != 0 || got.Timeout != 0 {
		t.Errorf("pool config = %+v, want no cap and no timeout", got)
	}
}

func TestClient_PoolConfig(t *testing.T) {
	transport := testutil.NewScriptedTransport()
	c := newTestClient(t, transport, func(cfg *Config) {
		cfg.MaxConcurrent = 7
		cfg.RequestsPerSecond = 3
		cfg.Header = http.Header{"X-Team": {"batch"}}
	})

	pc := c.PoolConfig()
	if pc.MaxConcurrent != 7 || pc.RequestsPerSecond != 3 || pc.Transport != transport {
		t.Errorf("PoolConfig = %+v", pc)
	}
	if pc.Header.Get("X-Team") != "batch" {
		t.Error("default header not passed to pool")
	}
}

func TestClient_QuietSilencesDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })

	transport := testutil.NewScriptedTransport().
		Script("/flaky", testutil.Status(503), testutil.Status(200))

	run := func(quiet bool) {
		c := newTestClient(t, transport, func(cfg *Config) {
			cfg.Quiet = quiet
			cfg.Policy.OnlyAccept200 = true
		})
		if _, err := c.Get(t.Context(), "/flaky"); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	run(true)
	if bytes.Contains(buf.Bytes(), []byte("Retrying request")) {
		t.Errorf("quiet client logged retries: %s", buf.String())
	}

	buf.Reset()
	transport = testutil.NewScriptedTransport().
		Script("/flaky", testutil.Status(503), testutil.Status(200))
	run(false)
	if !bytes.Contains(buf.Bytes(), []byte("Retrying request")) {
		t.Errorf("expected a retry diagnostic, got: %s", buf.String())
	}
}

func TestBatch_DiagnosticsCarryBatchID(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })

	transport := testutil.NewScriptedTransport().
		Script("/flaky", testutil.Status(503), testutil.Status(200))
	c := newTestClient(t, transport, func(cfg *Config) {
		cfg.Quiet = false
	})

	results, err := c.Batch(t.Context(), requestset.Single("/flaky"))
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}
	defer results.Close()

	want := `"batch_id":"` + results.BatchID() + `"`
	for _, l := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if bytes.Contains(l, []byte("Retrying request")) && !bytes.Contains(l, []byte(want)) {
			t.Errorf("retry diagnostic without %s: %s", want, l)
		}
	}
	if !bytes.Contains(buf.Bytes(), []byte("Retrying request")) {
		t.Errorf("expected a retry diagnostic, got: %s", buf.String())
	}
}
