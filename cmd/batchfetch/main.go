// Command batchfetch fetches a batch of URLs concurrently and prints one JSON
// line per request, in input order.
//
//	batchfetch --base-url https://api.example.com /users /orders
//	batchfetch --file requests.yaml --redis-addr localhost:6379
//
// The YAML file maps request names to a URL or to an object with url,
// method, headers, body and timeout keys.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/batchhttp/pkg/client"
	"github.com/Sternrassler/batchhttp/pkg/logging"
	"github.com/Sternrassler/batchhttp/pkg/metrics"
	"github.com/Sternrassler/batchhttp/pkg/requestset"
	"github.com/Sternrassler/batchhttp/pkg/store"
)

type options struct {
	BaseURL     string        `long:"base-url" env:"BATCHFETCH_BASE_URL" description:"Base URL for relative targets"`
	Limit       int           `long:"limit" env:"BATCHFETCH_LIMIT" default:"100" description:"Max in-flight requests (0 = no cap)"`
	Timeout     time.Duration `long:"timeout" env:"BATCHFETCH_TIMEOUT" default:"60s" description:"Per-attempt timeout (0 = none)"`
	RPS         float64       `long:"rps" env:"BATCHFETCH_RPS" description:"Pace request starts (0 = off)"`
	AcceptAny   bool          `long:"accept-any" description:"Accept any non-4xx status instead of retrying until 200"`
	Capture     []int         `long:"capture" description:"Status to retry (repeatable)"`
	Delay       time.Duration `long:"delay" description:"Sleep after each success (batches above two requests)"`
	RetryDelay  time.Duration `long:"retry-delay" default:"2s" description:"Wait between attempts"`
	MaxAttempts int           `long:"max-attempts" description:"Attempt ceiling (0 = retry until success)"`
	Method      string        `long:"method" default:"GET" description:"Default HTTP method"`
	Headers     []string      `long:"header" short:"H" description:"Default header as 'Key: Value' (repeatable)"`
	File        string        `long:"file" short:"f" description:"YAML file of named requests"`
	Read        bool          `long:"read" description:"Include response bodies in the output"`
	Quiet       bool          `long:"quiet" short:"q" description:"Silence per-attempt diagnostics"`
	FailFast    bool          `long:"fail-fast" description:"Cancel outstanding requests on the first failure"`
	RedisAddr   string        `long:"redis-addr" env:"REDIS_ADDR" description:"Store snapshots in Redis"`
	RedisTTL    time.Duration `long:"redis-ttl" env:"REDIS_TTL" default:"24h" description:"TTL of stored snapshots"`
	MetricsAddr string        `long:"metrics-addr" env:"METRICS_ADDR" description:"Serve Prometheus metrics on this address"`
	LogLevel    string        `long:"log-level" env:"LOG_LEVEL" default:"info" description:"debug, info, warn, error or disabled"`
	Pretty      bool          `long:"pretty" description:"Human-readable logs"`

	Args struct {
		Targets []string `positional-arg-name:"target"`
	} `positional-args:"yes"`
}

// line is one output record.
type line struct {
	Batch    string `json:"batch"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Attempts int    `json:"attempts"`
	Bytes    int    `json:"bytes"`
	Body     string `json:"body,omitempty"`
	Stored   string `json:"stored,omitempty"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	logging.Setup(logging.Config{
		Level:   logging.LogLevel(opts.LogLevel),
		Pretty:  opts.Pretty,
		Output:  os.Stderr,
		Service: "batchfetch",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Error().Err(err).Str("error_class", string(client.Class(err))).Msg("Batch failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	input, err := loadInput(opts)
	if err != nil {
		return err
	}

	header, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	if opts.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	cfg := client.DefaultConfig()
	cfg.BaseURL = opts.BaseURL
	cfg.Method = opts.Method
	cfg.Header = header
	cfg.MaxConcurrent = opts.Limit
	cfg.Timeout = opts.Timeout
	cfg.RequestsPerSecond = opts.RPS
	cfg.Delay = opts.Delay
	cfg.Quiet = opts.Quiet
	cfg.FailFast = opts.FailFast
	cfg.Policy.OnlyAccept200 = !opts.AcceptAny
	cfg.Policy.CaptureStatus = opts.Capture
	cfg.Policy.Backoff.Delay = opts.RetryDelay
	cfg.Policy.Backoff.MaxAttempts = opts.MaxAttempts
	cfg.Pipeline = client.ReadingBody()

	var manager *store.Manager
	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", opts.RedisAddr, err)
		}
		log.Info().Str("addr", opts.RedisAddr).Msg("Connected to Redis")

		manager = store.NewManager(rdb, store.Options{TTL: opts.RedisTTL})
		cfg.Pipeline.TransformInto = storeSnapshot
		cfg.Pipeline.Sink = manager
	}

	c := client.New(cfg)

	results, err := c.Batch(ctx, input)
	if err != nil {
		return err
	}
	defer results.Close()

	enc := json.NewEncoder(out)
	for name, o := range results.All() {
		rec := line{
			Batch:    results.BatchID(),
			Name:     name,
			URL:      o.URL.String(),
			Status:   o.StatusCode,
			Attempts: o.Attempts,
			Bytes:    len(o.Body),
		}
		if opts.Read {
			rec.Body = string(o.Body)
		}
		if manager != nil {
			rec.Stored = store.Key{Prefix: store.DefaultPrefix, Batch: results.BatchID(), Name: name}.String()
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	return nil
}

// storeSnapshot writes the buffered response to the sink under its name.
func storeSnapshot(ctx context.Context, ex *client.Exchange, sink client.Sink) error {
	snap, err := store.ReadSnapshot(ex.Response)
	if err != nil {
		return err
	}
	return sink.Put(ctx, ex.Request.Name, snap)
}

// loadInput builds the request input from --file or the positional targets.
func loadInput(opts options) (requestset.Input, error) {
	switch {
	case opts.File != "" && len(opts.Args.Targets) > 0:
		return nil, errors.New("use either --file or positional targets, not both")
	case opts.File != "":
		f, err := os.Open(opts.File)
		if err != nil {
			return nil, fmt.Errorf("open request file: %w", err)
		}
		defer f.Close()
		return decodeMapping(f)
	case len(opts.Args.Targets) > 0:
		return requestset.Targets(opts.Args.Targets...), nil
	default:
		return nil, errors.New("no targets given")
	}
}

// decodeMapping reads a YAML mapping of name to URL or options object,
// keeping the file order.
func decodeMapping(r io.Reader) (requestset.Mapping, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode request file: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: request file must be a mapping", requestset.ErrInvalidRequestFormat)
	}

	root := doc.Content[0]
	mapping := make(requestset.Mapping, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		node := root.Content[i+1]

		switch node.Kind {
		case yaml.ScalarNode:
			mapping = append(mapping, requestset.Entry{Name: name, Value: requestset.Target(node.Value)})
		case yaml.MappingNode:
			fields := requestset.Fields{}
			if err := node.Decode(&fields); err != nil {
				return nil, fmt.Errorf("decode request %q: %w", name, err)
			}
			mapping = append(mapping, requestset.Entry{Name: name, Value: fields})
		default:
			return nil, fmt.Errorf("%w: request %q must be a URL or a mapping", requestset.ErrInvalidRequestFormat, name)
		}
	}

	return mapping, nil
}

// parseHeaders turns "Key: Value" flags into a header.
func parseHeaders(raw []string) (http.Header, error) {
	header := make(http.Header, len(raw))
	for _, h := range raw {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q, want 'Key: Value'", h)
		}
		header.Add(key, strings.TrimSpace(value))
	}
	return header, nil
}
