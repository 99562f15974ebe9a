package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"lending-interest-lab/internal/domain"
)

// CSVRateSource reads a lending-rate export with a header row.
// The default columns match the Bitfinex lends export: rate in column 2,
// Unix-seconds timestamp in column 3.
type CSVRateSource struct {
	path           string
	rateCol, tsCol int
}

// CSVRateOption configures CSVRateSource.
type CSVRateOption func(*CSVRateSource)

// WithRateColumns overrides the rate and timestamp column indexes.
func WithRateColumns(rate, timestamp int) CSVRateOption {
	return func(s *CSVRateSource) {
		s.rateCol = rate
		s.tsCol = timestamp
	}
}

// NewCSVRateSource creates a source over the file at path.
func NewCSVRateSource(path string, opts ...CSVRateOption) *CSVRateSource {
	s := &CSVRateSource{path: path, rateCol: 2, tsCol: 3}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch parses the file and returns rows with timestamps in [from, to].
// A malformed row fails the whole read with domain.ErrValidation and its line number.
func (s *CSVRateSource) Fetch(_ context.Context, ticker string, from, to int64) ([]*domain.RateObservation, error) {
	var result []*domain.RateObservation
	err := readCSV(s.path, true, func(line int, rec []string) error {
		if err := needColumns(rec, s.rateCol, s.tsCol); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		o, err := domain.ParseRateObservation(ticker, rec[s.tsCol], rec[s.rateCol])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if o.Timestamp >= from && o.Timestamp <= to {
			result = append(result, o)
		}
		return nil
	})
	return result, err
}

// CSVPriceSource reads a headerless candles export
// (MTS, OPEN, CLOSE, HIGH, LOW, VOLUME) with millisecond timestamps.
type CSVPriceSource struct {
	path string
}

// NewCSVPriceSource creates a source over the file at path.
func NewCSVPriceSource(path string) *CSVPriceSource {
	return &CSVPriceSource{path: path}
}

const (
	candleColMTS    = 0
	candleColClose  = 2
	candleColVolume = 5
)

// Fetch parses the file and returns candles with timestamps in [from, to],
// converting timestamps to seconds.
func (s *CSVPriceSource) Fetch(_ context.Context, ticker string, from, to int64) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation
	err := readCSV(s.path, false, func(line int, rec []string) error {
		if err := needColumns(rec, candleColMTS, candleColClose, candleColVolume); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		ms, err := strconv.ParseInt(strings.TrimSpace(rec[candleColMTS]), 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w: timestamp %q is not an integer", line, domain.ErrValidation, rec[candleColMTS])
		}
		o, err := domain.ParsePriceObservation(ticker, strconv.FormatInt(ms/1000, 10), rec[candleColClose], rec[candleColVolume])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if o.Timestamp >= from && o.Timestamp <= to {
			result = append(result, o)
		}
		return nil
	})
	return result, err
}

func readCSV(path string, header bool, fn func(line int, rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	line := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv %s: %w", path, err)
		}
		line++
		if header && line == 1 {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if err := fn(line, rec); err != nil {
			return err
		}
	}
}

func needColumns(rec []string, cols ...int) error {
	for _, c := range cols {
		if c >= len(rec) {
			return fmt.Errorf("%w: row has %d columns, need column %d", domain.ErrValidation, len(rec), c)
		}
	}
	return nil
}
