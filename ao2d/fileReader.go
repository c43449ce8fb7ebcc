package main

import (
	"fmt"
	"io"

	"github.com/alice-run3/ao2d_go/pkg/esd"
)

// LineSource yields raw event lines and their line numbers.
type LineSource interface {
	NextLine() ([]byte, int, error)
}

// FileReader applies skip and max_events to the lines of an event file.
type FileReader struct {
	Source    LineSource
	Skip      int
	MaxEvents int
	Verbosity int
	EvtCount  int
}

func NewFileReader(source LineSource, skip int, maxEvents int, verbosity int) *FileReader {
	return &FileReader{Source: source, Skip: skip, MaxEvents: maxEvents, Verbosity: verbosity, EvtCount: -1}
}

func (f *FileReader) getNextEvent() ([]byte, int, error) {
	for {
		raw, line, err := f.Source.NextLine()
		if err != nil {
			return nil, line, err
		}
		f.EvtCount++
		if f.EvtCount >= f.MaxEvents {
			if f.Verbosity > 0 {
				logger.Info("Max events reached", "fileReader")
			}
			return nil, line, io.EOF
		}
		if f.EvtCount < f.Skip {
			if f.Verbosity > 1 {
				logger.Info(fmt.Sprintf("Skipping event %d at line %d", f.EvtCount, line), "fileReader")
			}
			continue
		}
		if f.Verbosity > 2 {
			logger.Info(fmt.Sprintf("Reading event %d at line %d", f.EvtCount, line), "fileReader")
		}
		return raw, line, nil
	}
}

var _ LineSource = (*esd.Reader)(nil)
