package esd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const maxLineSize = 64 * 1024 * 1024

// Reader reads events stored as JSON lines, one event per line.
type Reader struct {
	scanner *bufio.Scanner
	closers []io.Closer
	line    int
}

// OpenFile opens an event file. Files ending in .gz or .zst are decompressed
// on the fly.
func OpenFile(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	closers := []io.Closer{file}
	var in io.Reader = file

	switch {
	case strings.HasSuffix(filename, ".gz"):
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, &ErrOpenFile{Filename: filename, Err: err}
		}
		closers = append(closers, gz)
		in = gz
	case strings.HasSuffix(filename, ".zst"):
		zr, err := zstd.NewReader(file)
		if err != nil {
			file.Close()
			return nil, &ErrOpenFile{Filename: filename, Err: err}
		}
		closers = append(closers, zr.IOReadCloser())
		in = zr
	}

	reader := NewReader(in)
	reader.closers = closers
	return reader, nil
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// NextLine returns the next non-empty raw line and its line number. The
// returned slice is a copy owned by the caller.
func (r *Reader) NextLine() ([]byte, int, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		raw := make([]byte, len(line))
		copy(raw, line)
		return raw, r.line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, r.line, fmt.Errorf("error reading line %d: %w", r.line+1, err)
	}
	return nil, r.line, io.EOF
}

// Next decodes the next event.
func (r *Reader) Next() (*Event, error) {
	raw, line, err := r.NextLine()
	if err != nil {
		return nil, err
	}
	event, err := DecodeEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", line, err)
	}
	return event, nil
}

func (r *Reader) Close() error {
	var err error
	// close decompressors before the file
	for i := len(r.closers) - 1; i >= 0; i-- {
		if cerr := r.closers[i].Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func DecodeEvent(raw []byte) (*Event, error) {
	event := &Event{}
	if err := json.Unmarshal(raw, event); err != nil {
		return nil, fmt.Errorf("error decoding event: %w", err)
	}
	return event, nil
}
