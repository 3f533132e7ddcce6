package history

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/haivivi/handoff/pkg/session"
)

// Memory is an in-memory Store. Reports are stored encoded, so callers
// never share a *session.Report with the store.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]memRecord
}

type memRecord struct {
	index string
	data  []byte
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]memRecord)}
}

func (m *Memory) Save(_ context.Context, r *session.Report) error {
	if r == nil || r.ID == "" {
		return ErrNoID
	}
	data, err := encode(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.reports[r.ID] = memRecord{index: string(indexKey(r)), data: data}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*session.Report, error) {
	m.mu.RLock()
	rec, ok := m.reports[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return decode(rec.data)
}

func (m *Memory) List(_ context.Context, limit int) ([]*session.Report, error) {
	m.mu.RLock()
	recs := make([]memRecord, 0, len(m.reports))
	for _, rec := range m.reports {
		recs = append(recs, rec)
	}
	m.mu.RUnlock()

	slices.SortFunc(recs, func(a, b memRecord) int {
		return strings.Compare(b.index, a.index)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]*session.Report, 0, len(recs))
	for _, rec := range recs {
		r, err := decode(rec.data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.reports, id)
	return nil
}

func (m *Memory) Close() error { return nil }
