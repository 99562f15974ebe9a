package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateObservation_Valid(t *testing.T) {
	o, err := NewRateObservation("BTC", 1480530600, 0.0125)
	require.NoError(t, err)

	assert.Equal(t, "BTC", o.Ticker)
	assert.Equal(t, int64(1480530600), o.Timestamp)
	assert.InDelta(t, 0.0125, o.Rate, 1e-12)
}

func TestNewRateObservation_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		ticker    string
		timestamp int64
		rate      float64
	}{
		{"empty ticker", "", 1, 1.0},
		{"blank ticker", "   ", 1, 1.0},
		{"zero timestamp", "BTC", 0, 1.0},
		{"negative timestamp", "BTC", -5, 1.0},
		{"zero rate", "BTC", 1, 0},
		{"negative rate", "BTC", 1, -0.5},
		{"nan rate", "BTC", 1, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewRateObservation(tt.ticker, tt.timestamp, tt.rate)
			assert.Nil(t, o)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestNewPriceObservation_Invalid(t *testing.T) {
	_, err := NewPriceObservation("XMR", 100, 0, 1)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewPriceObservation("XMR", 100, 1, 0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewPriceObservation("", 100, 1, 1)
	assert.ErrorIs(t, err, ErrValidation)

	o, err := NewPriceObservation("XMR", 100, 0.012, 350.5)
	require.NoError(t, err)
	assert.Equal(t, 0.012, o.ClosePrice)
	assert.Equal(t, 350.5, o.Volume)
}

func TestParseRateObservation(t *testing.T) {
	o, err := ParseRateObservation("BTC", " 1480530600 ", "0.35")
	require.NoError(t, err)
	assert.Equal(t, int64(1480530600), o.Timestamp)
	assert.Equal(t, 0.35, o.Rate)

	_, err = ParseRateObservation("BTC", "abc", "0.35")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseRateObservation("BTC", "100", "rate")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseRateObservation("BTC", "100", "-1")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParsePriceObservation(t *testing.T) {
	o, err := ParsePriceObservation("XMR", "1507062600", "0.0151", "1200")
	require.NoError(t, err)
	assert.Equal(t, 0.0151, o.ClosePrice)
	assert.Equal(t, 1200.0, o.Volume)

	_, err = ParsePriceObservation("XMR", "1507062600", "x", "1200")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestWindow_AverageRate(t *testing.T) {
	w := &Window{
		Ticker: "BTC",
		Start:  100,
		End:    300,
		Observations: []*RateObservation{
			{Ticker: "BTC", Timestamp: 100, Rate: 1.0},
			{Ticker: "BTC", Timestamp: 200, Rate: 2.0},
			{Ticker: "BTC", Timestamp: 300, Rate: 6.0},
		},
	}

	avg, err := w.AverageRate()
	require.NoError(t, err)
	assert.InDelta(t, 3.0, avg, 1e-12)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, int64(200), w.Duration())
	require.NoError(t, w.Validate())
}

func TestWindow_AverageRate_Empty(t *testing.T) {
	w := &Window{Ticker: "BTC", Start: 100, End: 200}

	_, err := w.AverageRate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWindow_Validate(t *testing.T) {
	unordered := &Window{
		Ticker: "BTC", Start: 100, End: 300,
		Observations: []*RateObservation{
			{Ticker: "BTC", Timestamp: 200, Rate: 1},
			{Ticker: "BTC", Timestamp: 200, Rate: 1},
		},
	}
	assert.ErrorIs(t, unordered.Validate(), ErrInvalidArgument)

	outside := &Window{
		Ticker: "BTC", Start: 100, End: 300,
		Observations: []*RateObservation{{Ticker: "BTC", Timestamp: 400, Rate: 1}},
	}
	assert.ErrorIs(t, outside.Validate(), ErrInvalidArgument)

	inverted := &Window{Ticker: "BTC", Start: 300, End: 100}
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidArgument)
}

func TestNewInterestRun(t *testing.T) {
	obs := []*RateObservation{
		{Ticker: "BTC", Timestamp: 10, Rate: 1},
		{Ticker: "BTC", Timestamp: 20, Rate: 3},
	}

	r, err := NewInterestRun("BTC", obs)
	require.NoError(t, err)
	assert.Equal(t, int64(10), r.Start)
	assert.Equal(t, int64(20), r.End)
	assert.InDelta(t, 2.0, r.RateChange(), 1e-12)
	assert.Empty(t, r.InterestEntries)
	assert.False(t, r.Aligned)

	_, err = NewInterestRun("BTC", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestInterestRun_PriceChangePct(t *testing.T) {
	r := &InterestRun{
		InterestEntries: []*PriceObservation{
			{Ticker: "XMR", Timestamp: 10, ClosePrice: 2.0, Volume: 1},
			{Ticker: "XMR", Timestamp: 20, ClosePrice: 3.0, Volume: 1},
		},
	}
	assert.InDelta(t, 0.5, r.PriceChangePct(), 1e-12)

	r.InterestEntries = r.InterestEntries[:1]
	assert.Equal(t, 0.0, r.PriceChangePct())
}
