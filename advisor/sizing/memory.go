package sizing

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/biwstack/biw-advisor/advisor"
)

// TableLayout is the physical layout of one table in a MemoryStore.
type TableLayout struct {
	SizeBytes    uint64 `yaml:"size_bytes" json:"size_bytes"`
	RowsPerPage  uint32 `yaml:"rows_per_page" json:"rows_per_page"`
	LastPageRows uint32 `yaml:"last_page_rows" json:"last_page_rows"` // 0 = same as rows_per_page
}

// statsFile is the YAML layout of a table statistics file.
type statsFile struct {
	PageSize int                    `yaml:"page_size"`
	Tables   map[string]TableLayout `yaml:"tables"`
}

// MemoryStore is an in-process Storage backed by declared table layouts.
type MemoryStore struct {
	pageSize uint64

	mu     sync.RWMutex
	tables map[string]TableLayout
}

// NewMemoryStore returns an empty store with the given page size.
func NewMemoryStore(pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = advisor.DefaultPageSize
	}
	return &MemoryStore{pageSize: uint64(pageSize), tables: make(map[string]TableLayout)}
}

// LoadStatsFile reads table layouts from a YAML statistics file. A
// page_size in the file must match pageSize, the page size tables are sized
// with; a file without one is taken to use pageSize.
func LoadStatsFile(path string, pageSize int) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stats file: %w", err)
	}
	var f statsFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing stats file %q: %w", path, err)
	}
	if f.PageSize != 0 && f.PageSize != pageSize {
		return nil, fmt.Errorf("stats file %q declares page_size %d, but tables are sized with %d",
			path, f.PageSize, pageSize)
	}
	store := NewMemoryStore(pageSize)
	for name, t := range f.Tables {
		store.Put(name, t)
	}
	return store, nil
}

// Put adds or replaces a table.
func (m *MemoryStore) Put(name string, t TableLayout) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[name] = t
}

// Tables lists the table names in sorted order.
func (m *MemoryStore) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for n := range m.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *MemoryStore) lookup(table string) (TableLayout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[table]
	if !ok {
		return TableLayout{}, fmt.Errorf("table %q: %w", table, advisor.ErrTableNotFound)
	}
	return t, nil
}

func (m *MemoryStore) TableSizeBytes(_ context.Context, table string) (uint64, error) {
	t, err := m.lookup(table)
	if err != nil {
		return 0, err
	}
	return t.SizeBytes, nil
}

func (m *MemoryStore) PageCount(_ context.Context, table string) (uint32, error) {
	t, err := m.lookup(table)
	if err != nil {
		return 0, err
	}
	return uint32(t.SizeBytes / m.pageSize), nil
}

func (m *MemoryStore) PageRowCount(_ context.Context, table string, page uint32) (uint32, error) {
	t, err := m.lookup(table)
	if err != nil {
		return 0, err
	}
	pages := uint32(t.SizeBytes / m.pageSize)
	if page >= pages {
		return 0, fmt.Errorf("table %q has %d pages, page %d out of range", table, pages, page)
	}
	if page == pages-1 && t.LastPageRows > 0 {
		return t.LastPageRows, nil
	}
	return t.RowsPerPage, nil
}
