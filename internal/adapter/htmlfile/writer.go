// Package htmlfile writes rendered map pages to the filesystem.
package htmlfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const filePerm = 0o644

// Writer replaces a single output file on every write.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a Writer for path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Location returns the output file path.
func (w *Writer) Location() string {
	return w.path
}

// WritePage creates the parent directories, streams render into a temporary
// file next to the destination and renames it into place. Readers never see
// a partially written page; on failure the previous file is left untouched.
func (w *Writer) WritePage(ctx context.Context, render func(io.Writer) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err := render(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := replaceFile(tmpPath, w.path); err != nil {
		return err
	}

	w.logger.Debug("page written", "path", w.path)
	return nil
}

// replaceFile moves tmpPath over destPath, removing the destination first on
// platforms where rename does not overwrite.
func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err != nil {
		if removeErr := os.Remove(destPath); removeErr != nil && !os.IsNotExist(removeErr) {
			return fmt.Errorf("remove old page: %w", removeErr)
		}
		if err := os.Rename(tmpPath, destPath); err != nil {
			return fmt.Errorf("replace page: %w", err)
		}
	}
	return nil
}
