// Package fs writes captured records to files.
package fs

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/logtap/internal/domain"
)

const (
	// GzipExt marks export paths that are written gzip-compressed.
	GzipExt = ".gz"

	// ExportMode is the permission of a written export.
	ExportMode os.FileMode = 0o644
)

// WriteRecords writes the canonical text form of each record to w.
func WriteRecords(w io.Writer, recs []domain.Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range recs {
		if _, err := bw.WriteString(rec.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportFile writes recs to path.
// Uses atomic write (write to temp file, then rename) so a reader never
// sees a partial export. Paths ending in ".gz" are gzip-compressed.
func ExportFile(path string, recs []domain.Record) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmpName)
	}()

	// CreateTemp uses 0600; exports are meant to be shared.
	if err := tmp.Chmod(ExportMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := writeTo(tmp, path, recs); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpName, path)
}

func writeTo(f *os.File, path string, recs []domain.Record) error {
	if !strings.HasSuffix(path, GzipExt) {
		return WriteRecords(f, recs)
	}

	zw := gzip.NewWriter(f)
	zw.Name = strings.TrimSuffix(filepath.Base(path), GzipExt)
	if err := WriteRecords(zw, recs); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// ReadFile returns the text stored at path, decompressing ".gz" files.
func ReadFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, GzipExt) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return "", err
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
