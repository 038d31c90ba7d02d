package tags

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// compression returns the codec implied by a file name: "gzip", "zstd", or "".
func compression(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return "gzip"
	case ".zst", ".zstd":
		return "zstd"
	}
	return ""
}

// ExportFile writes an export to path, compressing it when the name ends in
// .gz or .zst.
func (s *Store) ExportFile(path, format string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var w io.WriteCloser
	switch compression(path) {
	case "gzip":
		w = gzip.NewWriter(out)
	case "zstd":
		zw, zerr := zstd.NewWriter(out)
		if zerr != nil {
			return fmt.Errorf("zstd writer: %w", zerr)
		}
		w = zw
	default:
		return s.Export(out, format)
	}

	if err := s.Export(w, format); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// OpenArchive opens path for reading, decompressing .gz and .zst files.
func OpenArchive(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch compression(path) {
	case "gzip":
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		return &archiveReader{Reader: gz, close: func() { gz.Close(); f.Close() }}, nil
	case "zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return &archiveReader{Reader: zr, close: func() { zr.Close(); f.Close() }}, nil
	}
	return f, nil
}

type archiveReader struct {
	io.Reader
	close func()
}

func (r *archiveReader) Close() error {
	r.close()
	return nil
}

// Import merges records from a JSON export. Imported records replace cached
// ones with the same tag; new tags are appended in file order. The store is
// persisted once at the end.
func (s *Store) Import(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read import: %w", err)
	}
	records, order, err := decode(data)
	if err != nil {
		return 0, fmt.Errorf("decode import: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range order {
		rec := records[key]
		rec.Tag = key
		if rec.Posts < 0 {
			rec.Posts = 0
		}
		if _, ok := s.records[key]; !ok {
			s.order = append(s.order, key)
		}
		s.records[key] = rec.clone()
	}

	s.log.Info("records imported", zap.Int("records", len(order)))
	return len(order), s.commit()
}
