// Package loader ingests delimited daily-series files into the raw form
// the pipeline consumes. It is the boundary adapter in front of the
// core: values are parsed strictly and never imputed.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/buschevapoly-del/final-project-nndl-1/internal/pipeline"
)

// Options describe the file layout.
type Options struct {
	Path       string
	DateColumn string
	DateFormat string
	Comma      rune
	// Columns maps canonical signal names to file column headers.
	Columns map[string]string
}

// Loader reads one delimited series file per call.
type Loader struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Loader with defaults applied.
func New(opts Options, logger zerolog.Logger) *Loader {
	if opts.DateColumn == "" {
		opts.DateColumn = "date"
	}
	if opts.DateFormat == "" {
		opts.DateFormat = "2006-01-02"
	}
	if opts.Comma == 0 {
		opts.Comma = ','
	}
	return &Loader{opts: opts, logger: logger.With().Str("component", "loader").Logger()}
}

// Load parses the configured file into a RawSeries. Every configured
// signal column must be present and fully numeric; a missing column is
// ErrMissingSignal, a malformed cell is fatal.
func (l *Loader) Load() (pipeline.RawSeries, error) {
	file, err := os.Open(l.opts.Path)
	if err != nil {
		return pipeline.RawSeries{}, fmt.Errorf("open series file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = l.opts.Comma
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return pipeline.RawSeries{}, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	dateIdx, ok := index[l.opts.DateColumn]
	if !ok {
		return pipeline.RawSeries{}, fmt.Errorf("%w: date column %q", pipeline.ErrMissingSignal, l.opts.DateColumn)
	}

	columns := make(map[string]int, len(l.opts.Columns))
	for signal, column := range l.opts.Columns {
		idx, ok := index[column]
		if !ok {
			return pipeline.RawSeries{}, fmt.Errorf("%w: column %q for signal %q", pipeline.ErrMissingSignal, column, signal)
		}
		columns[signal] = idx
	}

	series := pipeline.RawSeries{Signals: make(map[string][]float64, len(columns))}
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return pipeline.RawSeries{}, fmt.Errorf("read row %d: %w", row+1, err)
		}
		row++

		date, err := time.Parse(l.opts.DateFormat, record[dateIdx])
		if err != nil {
			return pipeline.RawSeries{}, fmt.Errorf("row %d: parse date %q: %w", row, record[dateIdx], err)
		}
		series.Dates = append(series.Dates, date)

		for signal, idx := range columns {
			value, err := strconv.ParseFloat(record[idx], 64)
			if err != nil {
				return pipeline.RawSeries{}, fmt.Errorf("row %d: signal %q: parse %q: %w", row, signal, record[idx], err)
			}
			series.Signals[signal] = append(series.Signals[signal], value)
		}
	}

	if err := series.Validate(); err != nil {
		return pipeline.RawSeries{}, err
	}

	l.logger.Debug().Int("rows", row).Int("signals", len(columns)).Msg("series file loaded")
	return series, nil
}
