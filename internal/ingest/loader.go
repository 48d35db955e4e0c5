package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/histograde/internal/logging"
	"github.com/ppiankov/histograde/internal/model"
	"golang.org/x/sync/errgroup"
)

// ErrNoRecords is returned when a directory holds no records at all
var ErrNoRecords = errors.New("no records found")

// Loader reads dump files into patient records
type Loader struct {
	logger  logging.Logger
	readers int
}

// NewLoader creates a loader reading up to readers files at once
func NewLoader(logger logging.Logger, readers int) *Loader {
	if readers <= 0 {
		readers = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Loader{logger: logger.Named("ingest"), readers: readers}
}

// ListFiles returns the *.txt files directly inside dir in name order
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// LoadDirectory reads every dump in dir concurrently and groups the records
// by patient
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]model.Record, error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}

	perFile := make([][]Chunk, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.readers)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			perFile[i] = l.split(file, string(data))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, c := range perFile {
		chunks = append(chunks, c...)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoRecords)
	}

	records := GroupByPatient(chunks)
	l.logger.Info("loaded records",
		logging.String("dir", dir),
		logging.Int("files", len(files)),
		logging.Int("chunks", len(chunks)),
		logging.Int("patients", len(records)))
	return records, nil
}

// LoadFile reads a single file. A file without record delimiters is treated
// as one record named after the file.
func (l *Loader) LoadFile(path string) ([]model.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return l.ReadRecords(path, string(data)), nil
}

// ReadRecords parses text that may or may not be a delimited dump
func (l *Loader) ReadRecords(name, text string) []model.Record {
	if !strings.Contains(text, RecordDelimiter) {
		id := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		return []model.Record{{ID: id, Text: Normalize(text), File: name}}
	}
	return GroupByPatient(l.split(name, text))
}

func (l *Loader) split(file, dump string) []Chunk {
	chunks := SplitFile(file, Normalize(dump))
	for _, c := range chunks {
		if c.PatientID == UnknownPatient {
			l.logger.Warn("no patient id found",
				logging.String("file", file),
				logging.String("record", preview(c.Text, 80)))
		}
	}
	return chunks
}

func preview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= n {
		return text
	}
	return text[:n] + "..."
}
