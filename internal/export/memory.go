package export

import (
	"context"
	"sync"
)

// MemoryWriter collects statement rows in memory. Used in tests and as
// the sink when no spreadsheet is configured.
type MemoryWriter struct {
	mu   sync.Mutex
	rows []StatementRow
}

var _ StatementWriter = (*MemoryWriter)(nil)

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (w *MemoryWriter) AppendRows(_ context.Context, rows []StatementRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, rows...)
	return nil
}

// Rows returns a copy of everything appended so far.
func (w *MemoryWriter) Rows() []StatementRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]StatementRow(nil), w.rows...)
}
