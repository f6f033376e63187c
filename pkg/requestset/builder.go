package requestset

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/batchhttp/pkg/urlresolve"
)

// Keys recognized in Fields.
const (
	FieldURL     = "url"
	FieldMethod  = "method"
	FieldHeaders = "headers"
	FieldBody    = "body"
	FieldTimeout = "timeout"
)

var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodConnect: true,
	http.MethodOptions: true,
	http.MethodTrace:   true,
}

// NormalizeMethod upper-cases method and falls back to GET for anything
// that is not a standard HTTP method.
func NormalizeMethod(method string) string {
	m := strings.ToUpper(strings.TrimSpace(method))
	if !knownMethods[m] {
		return http.MethodGet
	}
	return m
}

// Builder turns caller input into an ordered descriptor Set.
type Builder struct {
	// Resolver joins relative targets. Nil resolves targets as-is.
	Resolver *urlresolve.Resolver

	// Defaults apply to every request before its own options.
	Defaults Options
}

// NewBuilder creates a Builder.
func NewBuilder(resolver *urlresolve.Resolver, defaults Options) *Builder {
	return &Builder{Resolver: resolver, Defaults: defaults}
}

// Build normalizes input into a Set. It never performs I/O.
func (b *Builder) Build(in Input) (*Set, error) {
	set := &Set{index: make(map[string]int)}

	switch v := in.(type) {
	case Single:
		if err := b.add(set, "0", Target(v)); err != nil {
			return nil, err
		}
	case Sequence:
		for i, val := range v {
			if err := b.add(set, strconv.Itoa(i), val); err != nil {
				return nil, err
			}
		}
	case Mapping:
		for _, e := range v {
			if err := b.add(set, e.Name, e.Value); err != nil {
				return nil, err
			}
		}
	case nil:
		return nil, invalid("", "input is nil")
	default:
		return nil, invalid("", "unsupported input type %T", in)
	}

	return set, nil
}

func (b *Builder) add(set *Set, key string, val Value) error {
	if _, dup := set.index[key]; dup {
		return invalid(key, "duplicate request name")
	}

	target, opts, err := b.unpack(key, val)
	if err != nil {
		return err
	}

	u, err := b.Resolver.Resolve(target)
	if err != nil {
		return fmt.Errorf("request %q: %w", key, err)
	}

	d := b.descriptor(key, u, opts)
	set.index[key] = len(set.items)
	set.items = append(set.items, d)
	return nil
}

// unpack extracts the raw target and options from one value.
func (b *Builder) unpack(key string, val Value) (string, Options, error) {
	switch v := val.(type) {
	case Target:
		return string(v), Options{}, nil
	case Pair:
		if strings.TrimSpace(v.Target) == "" {
			return "", Options{}, invalid(key, "pair has an empty target")
		}
		return v.Target, v.Options, nil
	case Fields:
		return parseFields(key, v)
	case nil:
		return "", Options{}, invalid(key, "value is nil")
	default:
		return "", Options{}, invalid(key, "unsupported value type %T", val)
	}
}

func (b *Builder) descriptor(name string, u *url.URL, opts Options) Descriptor {
	d := Descriptor{
		Name:    name,
		URL:     u,
		Method:  http.MethodGet,
		Header:  make(http.Header),
		Body:    b.Defaults.Body,
		Timeout: b.Defaults.Timeout,
	}

	if b.Defaults.Method != "" {
		d.Method = NormalizeMethod(b.Defaults.Method)
	}
	if opts.Method != "" {
		d.Method = NormalizeMethod(opts.Method)
	}

	mergeHeader(d.Header, b.Defaults.Header)
	mergeHeader(d.Header, opts.Header)

	if opts.Body != nil {
		d.Body = opts.Body
	}
	if d.Body != nil {
		d.Body = append([]byte(nil), d.Body...)
	}
	if opts.Timeout > 0 {
		d.Timeout = opts.Timeout
	}

	if len(b.Defaults.Extra) > 0 || len(opts.Extra) > 0 {
		d.Extra = make(map[string]any, len(b.Defaults.Extra)+len(opts.Extra))
		maps.Copy(d.Extra, b.Defaults.Extra)
		maps.Copy(d.Extra, opts.Extra)
	}

	return d
}

func mergeHeader(dst, src http.Header) {
	for k, vs := range src {
		dst[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
}

func parseFields(key string, f Fields) (string, Options, error) {
	var opts Options

	raw, ok := f[FieldURL]
	if !ok {
		return "", opts, invalid(key, "mapping value requires a %q key", FieldURL)
	}

	var target string
	switch u := raw.(type) {
	case string:
		target = u
	case *url.URL:
		if u == nil {
			return "", opts, invalid(key, "%q is nil", FieldURL)
		}
		target = u.String()
	case url.URL:
		target = u.String()
	default:
		return "", opts, invalid(key, "%q must be a string, got %T", FieldURL, raw)
	}

	for k, v := range f {
		switch k {
		case FieldURL:
		case FieldMethod:
			m, ok := v.(string)
			if !ok {
				return "", opts, invalid(key, "%q must be a string, got %T", FieldMethod, v)
			}
			opts.Method = m
		case FieldHeaders:
			h, err := toHeader(v)
			if err != nil {
				return "", opts, invalid(key, "%q: %v", FieldHeaders, err)
			}
			opts.Header = h
		case FieldBody:
			switch body := v.(type) {
			case string:
				opts.Body = []byte(body)
			case []byte:
				opts.Body = body
			default:
				return "", opts, invalid(key, "%q must be a string or bytes, got %T", FieldBody, v)
			}
		case FieldTimeout:
			d, err := toDuration(v)
			if err != nil {
				return "", opts, invalid(key, "%q: %v", FieldTimeout, err)
			}
			opts.Timeout = d
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]any)
			}
			opts.Extra[k] = v
		}
	}

	return target, opts, nil
}

func toHeader(v any) (http.Header, error) {
	h := make(http.Header)
	switch m := v.(type) {
	case http.Header:
		mergeHeader(h, m)
	case map[string][]string:
		mergeHeader(h, m)
	case map[string]string:
		for k, s := range m {
			h.Set(k, s)
		}
	case map[string]any:
		for k, raw := range m {
			switch s := raw.(type) {
			case string:
				h.Set(k, s)
			case []string:
				for _, item := range s {
					h.Add(k, item)
				}
			case []any:
				for _, item := range s {
					str, ok := item.(string)
					if !ok {
						return nil, fmt.Errorf("header %q has non-string value %T", k, item)
					}
					h.Add(k, str)
				}
			default:
				return nil, fmt.Errorf("header %q has unsupported value %T", k, raw)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
	return h, nil
}

// toDuration accepts a time.Duration, a number of seconds or a duration string.
func toDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	case string:
		if secs, err := strconv.ParseFloat(d, 64); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return time.ParseDuration(d)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
