package store

import (
	"context"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "default prefix",
			key:  Key{Batch: "b1", Name: "users"},
			want: "batchhttp:b1:users",
		},
		{
			name: "custom prefix trimmed",
			key:  Key{Prefix: "app:", Batch: "b1", Name: "0"},
			want: "app:b1:0",
		},
		{
			name: "missing batch",
			key:  Key{Name: "users"},
			want: "batchhttp:-:users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_Pattern(t *testing.T) {
	k := Key{Batch: "b1", Name: "ignored"}
	if got := k.pattern(); got != "batchhttp:b1:*" {
		t.Errorf("pattern() = %q", got)
	}
}

func TestBatchContext(t *testing.T) {
	ctx := context.Background()
	if got := BatchFrom(ctx); got != "" {
		t.Errorf("BatchFrom(empty) = %q, want empty", got)
	}

	ctx = WithBatch(ctx, "abc")
	if got := BatchFrom(ctx); got != "abc" {
		t.Errorf("BatchFrom = %q, want abc", got)
	}
}
