package rowstore

import (
	"context"
	"sync"
)

type Memory struct {
	mu     sync.RWMutex
	header []string
	rows   [][]string
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) EnsureHeader(ctx context.Context, header []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !equalHeader(m.header, header) {
		m.header = append([]string(nil), header...)
	}
	return nil
}

func (m *Memory) Header(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.header...), nil
}

func (m *Memory) Append(ctx context.Context, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, pad(append([]string(nil), row...), len(m.header)))
	return nil
}

func (m *Memory) Rows(ctx context.Context) ([][]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (m *Memory) UpdateCells(ctx context.Context, row int, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, vals, err := cellIndexes(m.header, values)
	if err != nil {
		return err
	}
	if row < 0 || row >= len(m.rows) {
		return ErrRowOutOfRange
	}
	m.rows[row] = pad(m.rows[row], cols[len(cols)-1]+1)
	for j, c := range cols {
		m.rows[row][c] = vals[j]
	}
	return nil
}
