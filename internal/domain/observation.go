package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RateObservation is a lending rate observed for a reference asset.
// Values are treated as read-only once constructed; windows and runs share them.
type RateObservation struct {
	Ticker    string  // reference asset, e.g. "BTC"
	Timestamp int64   // Unix timestamp in seconds
	Rate      float64 // lending rate, strictly positive
}

// PriceObservation is a close price and traded volume for an asset.
type PriceObservation struct {
	Ticker     string  // asset symbol, e.g. "XMR"
	Timestamp  int64   // Unix timestamp in seconds
	ClosePrice float64 // close price, strictly positive
	Volume     float64 // traded volume, strictly positive
}

// NewRateObservation validates the fields and returns a RateObservation.
// Returns an error wrapping ErrValidation on a blank ticker or non-positive values.
func NewRateObservation(ticker string, timestamp int64, rate float64) (*RateObservation, error) {
	o := &RateObservation{Ticker: ticker, Timestamp: timestamp, Rate: rate}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the observation invariants.
func (o *RateObservation) Validate() error {
	if err := validateTicker(o.Ticker); err != nil {
		return err
	}
	if err := validateTimestamp(o.Timestamp); err != nil {
		return err
	}
	return validatePositive("lending rate", o.Rate)
}

// String returns a short human readable form.
func (o *RateObservation) String() string {
	return fmt.Sprintf("%s@%d rate=%f", o.Ticker, o.Timestamp, o.Rate)
}

// NewPriceObservation validates the fields and returns a PriceObservation.
func NewPriceObservation(ticker string, timestamp int64, closePrice, volume float64) (*PriceObservation, error) {
	o := &PriceObservation{Ticker: ticker, Timestamp: timestamp, ClosePrice: closePrice, Volume: volume}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate checks the observation invariants.
func (o *PriceObservation) Validate() error {
	if err := validateTicker(o.Ticker); err != nil {
		return err
	}
	if err := validateTimestamp(o.Timestamp); err != nil {
		return err
	}
	if err := validatePositive("close price", o.ClosePrice); err != nil {
		return err
	}
	return validatePositive("volume", o.Volume)
}

// String returns a short human readable form.
func (o *PriceObservation) String() string {
	return fmt.Sprintf("%s@%d close=%f volume=%f", o.Ticker, o.Timestamp, o.ClosePrice, o.Volume)
}

// ParseRateObservation builds a RateObservation from textual fields,
// as they arrive from CSV exports and JSON APIs that quote numbers.
func ParseRateObservation(ticker, timestamp, rate string) (*RateObservation, error) {
	ts, err := parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	r, err := parseFloat("lending rate", rate)
	if err != nil {
		return nil, err
	}
	return NewRateObservation(ticker, ts, r)
}

// ParsePriceObservation builds a PriceObservation from textual fields.
func ParsePriceObservation(ticker, timestamp, closePrice, volume string) (*PriceObservation, error) {
	ts, err := parseTimestamp(timestamp)
	if err != nil {
		return nil, err
	}
	cp, err := parseFloat("close price", closePrice)
	if err != nil {
		return nil, err
	}
	v, err := parseFloat("volume", volume)
	if err != nil {
		return nil, err
	}
	return NewPriceObservation(ticker, ts, cp, v)
}

func validateTicker(t string) error {
	if strings.TrimSpace(t) == "" {
		return fmt.Errorf("%w: ticker cannot be empty", ErrValidation)
	}
	return nil
}

func validateTimestamp(ts int64) error {
	if ts <= 0 {
		return fmt.Errorf("%w: timestamp must be positive, got %d", ErrValidation, ts)
	}
	return nil
}

func validatePositive(name string, v float64) error {
	// NaN fails the comparison as well
	if !(v > 0) {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrValidation, name, v)
	}
	return nil
}

func parseTimestamp(s string) (int64, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: timestamp %q is not an integer", ErrValidation, s)
	}
	return ts, nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrValidation, name, s)
	}
	return v, nil
}
