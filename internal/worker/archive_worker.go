// Package worker mirrors generated report artifacts into an archive
// directory, driven by report.generated events.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"truckbooks/internal/amqp"
	"truckbooks/internal/artifact"
)

// ArchiveWorker copies each announced artifact from the reports root
// into the archive directory with the same atomic rename discipline the
// artifact store uses for the originals.
type ArchiveWorker struct {
	reports    *artifact.Store
	archiveDir string
}

func NewArchiveWorker(reports *artifact.Store, archiveDir string) (*ArchiveWorker, error) {
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &ArchiveWorker{reports: reports, archiveDir: archiveDir}, nil
}

// HandleReportGenerated archives one announced artifact. A missing
// artifact is an error so the delivery can be retried; the file may
// still be in flight on a shared filesystem.
func (w *ArchiveWorker) HandleReportGenerated(ctx context.Context, msg *amqp.ReportGeneratedMessage) error {
	slog.InfoContext(ctx, "Archiving report",
		"filename", msg.Filename,
		"kind", msg.Kind,
		"generated_at", msg.GeneratedAt)

	src, err := w.reports.Resolve(msg.Filename)
	if err != nil {
		return fmt.Errorf("resolve artifact %s: %w", msg.Filename, err)
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", msg.Filename, err)
	}

	tmp, err := os.CreateTemp(w.archiveDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp archive file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write archive copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close archive copy: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(w.archiveDir, msg.Filename)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish archive copy: %w", err)
	}

	slog.InfoContext(ctx, "Report archived", "filename", msg.Filename, "bytes", len(data))
	return nil
}
