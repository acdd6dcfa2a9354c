package tickfile

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/yanun0323/errors"

	"felix/internal/schema"
)

const defaultBufferSize = 256 * RecordSize

// Writer appends tick records to a file.
type Writer struct {
	file  *os.File
	buf   *bufio.Writer
	rec   []byte
	count int
}

// Create truncates or creates path and returns a writer positioned at its start.
func Create(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create tick dir")
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "create tick file "+path)
	}
	return &Writer{
		file: file,
		buf:  bufio.NewWriterSize(file, defaultBufferSize),
		rec:  make([]byte, RecordSize),
	}, nil
}

// Write appends one record.
func (w *Writer) Write(tick schema.Tick) error {
	w.rec = EncodeTick(w.rec, tick)
	if _, err := w.buf.Write(w.rec); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	return w.count
}

// Close flushes buffered records and closes the file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return err
	}
	if err := w.file.Sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteFile writes all ticks to path.
func WriteFile(path string, ticks []schema.Tick) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	for _, tick := range ticks {
		if err := w.Write(tick); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
