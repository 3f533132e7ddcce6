// Package history persists session reports so finished runs can be listed
// and inspected later.
//
// Reports are msgpack-encoded under "report:<id>". A second key
// "index:<started-unix-nano>:<id>" orders them by start time, which lets
// List walk the index backwards to return the newest first.
//
// Badger is the on-disk implementation; Memory is for tests and for runs
// that opt out of persistence.
package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/handoff/pkg/session"
)

var (
	// ErrNotFound is returned when no report exists for an ID.
	ErrNotFound = errors.New("history: not found")

	// ErrNoID is returned when saving a report without an ID.
	ErrNoID = errors.New("history: report has no id")
)

// Store keeps session reports.
type Store interface {
	// Save stores r, replacing any report with the same ID.
	Save(ctx context.Context, r *session.Report) error

	// Get returns the report for id or ErrNotFound.
	Get(ctx context.Context, id string) (*session.Report, error)

	// List returns up to limit reports, newest first. A limit <= 0 means
	// no limit.
	List(ctx context.Context, limit int) ([]*session.Report, error)

	// Delete removes the report for id. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}

const (
	reportPrefix = "report:"
	indexPrefix  = "index:"
)

func reportKey(id string) []byte {
	return []byte(reportPrefix + id)
}

// indexKey zero-pads the timestamp so byte order matches time order.
func indexKey(r *session.Report) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", indexPrefix, r.StartedAt.UnixNano(), r.ID)
}

// idFromIndex extracts the report ID from an index key.
func idFromIndex(key []byte) string {
	rest := strings.TrimPrefix(string(key), indexPrefix)
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[i+1:]
	}
	return rest
}

// Reports reuse their json tags as msgpack field names so that stored
// records read the same as the CLI's json output.
func encode(r *session.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("history: encode %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*session.Report, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var r session.Report
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("history: decode: %w", err)
	}
	return &r, nil
}
