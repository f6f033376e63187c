package store

import "strings"

// DefaultPrefix is the first key segment when Options.Prefix is empty.
const DefaultPrefix = "batchhttp"

// Key identifies one stored value.
type Key struct {
	// Prefix namespaces all keys of a manager.
	Prefix string

	// Batch is the batch ID; empty values are stored under "-".
	Batch string

	// Name is the request name.
	Name string
}

// String generates the Redis key.
// Format: prefix:batch:name
//
// Example:
//
//	batchhttp:3f0c5a52-...:users
func (k Key) String() string {
	prefix := strings.Trim(k.Prefix, ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	batch := k.Batch
	if batch == "" {
		batch = "-"
	}
	return strings.Join([]string{prefix, batch, k.Name}, ":")
}

// pattern matches every key of one batch.
func (k Key) pattern() string {
	k.Name = "*"
	return k.String()
}
