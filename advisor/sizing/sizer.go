// Package sizing estimates the input cardinality of a query from the
// physical layout of its data table.
package sizing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/biwstack/biw-advisor/advisor"
)

// Workload is the estimated size of a scan.
type Workload struct {
	Rows  float64 `json:"rows" yaml:"rows"`
	Pages float64 `json:"pages" yaml:"pages"`
}

// Sizer estimates row counts through a storage collaborator.
// Results are not cached; every call asks the storage again.
type Sizer struct {
	storage  advisor.Storage
	pageSize uint64
}

// NewSizer returns a Sizer reading pages of pageSize bytes.
func NewSizer(storage advisor.Storage, pageSize int) *Sizer {
	if pageSize <= 0 {
		panic(fmt.Sprintf("sizing: invalid page size %d", pageSize))
	}
	return &Sizer{storage: storage, pageSize: uint64(pageSize)}
}

// Size returns the page count (raw bytes / page size) and an estimated row
// count of first_page_rows × (pages − 1) + last_page_rows. The estimate
// assumes uniform row density and is not an exact count.
func (s *Sizer) Size(ctx context.Context, table string) (Workload, error) {
	size, err := s.storage.TableSizeBytes(ctx, table)
	if err != nil {
		return Workload{}, fmt.Errorf("sizing %q: %w", table, err)
	}
	pages := size / s.pageSize
	if pages == 0 {
		return Workload{}, nil
	}

	first, err := s.storage.PageRowCount(ctx, table, 0)
	if err != nil {
		return Workload{}, fmt.Errorf("sizing %q first page: %w", table, err)
	}
	if pages == 1 {
		return Workload{Rows: float64(first), Pages: 1}, nil
	}
	last, err := s.storage.PageRowCount(ctx, table, uint32(pages-1))
	if err != nil {
		return Workload{}, fmt.Errorf("sizing %q last page: %w", table, err)
	}
	w := Workload{
		Rows:  float64(first)*float64(pages-1) + float64(last),
		Pages: float64(pages),
	}
	logrus.Debugf("[sizing] %s: %d bytes, %d pages, first=%d last=%d rows=%.0f",
		table, size, pages, first, last, w.Rows)
	return w, nil
}

// Report describes a table as the storage collaborator sees it.
type Report struct {
	Table         string   `json:"table" yaml:"table"`
	SizeBytes     uint64   `json:"size_bytes" yaml:"size_bytes"`
	StoragePages  uint32   `json:"storage_pages" yaml:"storage_pages"`
	FirstPageRows uint32   `json:"first_page_rows" yaml:"first_page_rows"`
	Workload      Workload `json:"workload" yaml:"workload"`
}

// Inspect gathers the raw storage figures behind Size for a table.
func (s *Sizer) Inspect(ctx context.Context, table string) (Report, error) {
	w, err := s.Size(ctx, table)
	if err != nil {
		return Report{}, err
	}
	r := Report{Table: table, Workload: w}
	if r.SizeBytes, err = s.storage.TableSizeBytes(ctx, table); err != nil {
		return Report{}, fmt.Errorf("inspect %q: %w", table, err)
	}
	if r.StoragePages, err = s.storage.PageCount(ctx, table); err != nil {
		return Report{}, fmt.Errorf("inspect %q: %w", table, err)
	}
	if r.StoragePages > 0 {
		if r.FirstPageRows, err = s.storage.PageRowCount(ctx, table, 0); err != nil {
			return Report{}, fmt.Errorf("inspect %q: %w", table, err)
		}
	}
	return r, nil
}
