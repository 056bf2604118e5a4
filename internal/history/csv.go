package history

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSink appends entries as rows to a CSV file. The header row is written
// only when the file is empty or new.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink opens (or creates) path in append mode.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv sink: %w", err)
	}

	s := &CSVSink{file: f, writer: csv.NewWriter(f)}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat csv sink: %w", err)
	}
	if info.Size() == 0 {
		if err := s.writer.Write([]string{"timestamp", "album", "track", "commentary"}); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write csv header: %w", err)
		}
		s.writer.Flush()
		if err := s.writer.Error(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to flush csv header: %w", err)
		}
	}

	return s, nil
}

// Append writes one row and flushes it to disk.
func (s *CSVSink) Append(e Entry) error {
	row := []string{e.Timestamp.Format(TimeFormat), e.Album, e.Track, e.Commentary}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write csv row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv row: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	s.writer.Flush()
	return s.file.Close()
}
