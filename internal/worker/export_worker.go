package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetadvisor/internal/amqp"
	"budgetadvisor/internal/core"
	"budgetadvisor/internal/sheets"
)

// ExportStore is the slice of the history store the worker needs.
type ExportStore interface {
	HistoryEntry(ctx context.Context, entryID int64) (core.HistoryEntry, error)
	PendingExport(ctx context.Context, limit int) ([]core.HistoryEntry, error)
	// ClaimExport marks the entry exported unless it already is, and
	// reports whether this caller won it.
	ClaimExport(ctx context.Context, entryID int64) (bool, error)
	ReleaseExport(ctx context.Context, entryID int64) error
}

// ExportWorker copies history entries from the database to a spreadsheet.
type ExportWorker struct {
	storage   ExportStore
	exporter  sheets.AdviceExporter
	batchSize int
}

func NewExportWorker(storage ExportStore, exporter sheets.AdviceExporter, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleAdviceRecorded processes a single advice.recorded message from AMQP.
// Already exported entries are acknowledged without writing a second row.
func (w *ExportWorker) HandleAdviceRecorded(ctx context.Context, msg *amqp.AdviceRecordedMessage) error {
	slog.InfoContext(ctx, "Processing advice recorded message",
		"entry_id", msg.EntryID,
		"message_id", msg.MessageID)

	entry, err := w.storage.HistoryEntry(ctx, msg.EntryID)
	if errors.Is(err, core.ErrEntryNotFound) {
		slog.WarnContext(ctx, "History entry not found, dropping message", "entry_id", msg.EntryID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get history entry: %w", err)
	}

	_, err = w.export(ctx, entry)
	return err
}

// ProcessPending exports up to one batch of entries that were never
// exported. It backs up lost AMQP messages and returns how many were written.
func (w *ExportWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.storage.PendingExport(ctx, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending history entries", "count", len(pending))

	exported := 0
	for _, entry := range pending {
		if err := ctx.Err(); err != nil {
			return exported, err
		}
		ok, err := w.export(ctx, entry)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export entry", "entry_id", entry.ID, "error", err)
			continue
		}
		if ok {
			exported++
		}
	}
	return exported, nil
}

// StartupExportCheck drains a larger backlog once when the worker starts,
// to recover from downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	total := 0
	for round := 0; round < 5; round++ {
		n, err := w.ProcessPending(ctx)
		if err != nil {
			return fmt.Errorf("startup export check: %w", err)
		}
		total += n
		if n < w.batchSize {
			break
		}
	}

	if total == 0 {
		slog.InfoContext(ctx, "No pending history entries found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup export completed", "exported", total)
	return nil
}

// export claims the entry and then appends it to the sheet. The consumer
// and the sweep may both pick up an entry; only the claim winner writes a
// row. A failed write releases the claim so the entry is retried.
func (w *ExportWorker) export(ctx context.Context, entry core.HistoryEntry) (bool, error) {
	claimed, err := w.storage.ClaimExport(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("claim entry: %w", err)
	}
	if !claimed {
		slog.InfoContext(ctx, "History entry already exported", "entry_id", entry.ID)
		return false, nil
	}

	ref, err := w.exporter.ExportAdvice(ctx, entry)
	if err != nil {
		if relErr := w.storage.ReleaseExport(context.WithoutCancel(ctx), entry.ID); relErr != nil {
			slog.ErrorContext(ctx, "Failed to release export claim", "entry_id", entry.ID, "error", relErr)
		}
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Exported history entry",
		"entry_id", entry.ID,
		"user_id", entry.UserID,
		"sheets_ref", ref)
	return true, nil
}
