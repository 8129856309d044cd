// Package memory is an in-process AdviceExporter for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetadvisor/internal/core"
	ports "budgetadvisor/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows [][]string
	ids  []int64
	fail error
}

var _ ports.AdviceExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// FailWith makes subsequent exports return err. Pass nil to recover.
func (x *Exporter) FailWith(err error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.fail = err
}

// ExportAdvice stores the row and returns a synthetic row reference.
func (x *Exporter) ExportAdvice(_ context.Context, e core.HistoryEntry) (string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.fail != nil {
		return "", x.fail
	}
	x.rows = append(x.rows, ports.Row(e))
	x.ids = append(x.ids, e.ID)
	return fmt.Sprintf("mem:%d", len(x.rows)), nil
}

// Rows returns a copy of the exported rows.
func (x *Exporter) Rows() [][]string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([][]string, len(x.rows))
	copy(out, x.rows)
	return out
}

// EntryIDs returns the IDs of exported entries in export order.
func (x *Exporter) EntryIDs() []int64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]int64(nil), x.ids...)
}
