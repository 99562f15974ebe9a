package stub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
)

func TestGenerateWindows_Counts(t *testing.T) {
	windows, err := GenerateWindows("BTC", 10, 12, 1479123456, 1489123457, 1)
	require.NoError(t, err)
	require.Len(t, windows, 10)

	for _, w := range windows {
		assert.Len(t, w.Observations, 12)
		require.NoError(t, w.Validate())
		assert.GreaterOrEqual(t, w.Start, int64(1479123456))
		assert.LessOrEqual(t, w.End, int64(1489123457))
	}
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End, windows[i].Start)
	}
}

func TestGenerateWindows_Empty(t *testing.T) {
	windows, err := GenerateWindows("BTC", 0, 512, 1489123456, 1489123457, 1)
	require.NoError(t, err)
	assert.Empty(t, windows)

	windows, err = GenerateWindows("BTC", 512, 0, 1489123456, 1489123457, 1)
	require.NoError(t, err)
	assert.Empty(t, windows)
}

func TestGenerateWindows_Negative(t *testing.T) {
	_, err := GenerateWindows("BTC", -10, 512, 1489123456, 1489123457, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = GenerateWindows("BTC", 512, -1, 1489123456, 1489123457, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGenerateRateSeries_Deterministic(t *testing.T) {
	a, err := GenerateRateSeries("BTC", 50, 1000, 5000, 42)
	require.NoError(t, err)
	b, err := GenerateRateSeries("BTC", 50, 1000, 5000, 42)
	require.NoError(t, err)
	require.Len(t, a, 50)

	for i := range a {
		assert.Equal(t, a[i].Timestamp, b[i].Timestamp)
		assert.Equal(t, a[i].Rate, b[i].Rate)
		require.NoError(t, a[i].Validate())
		if i > 0 {
			assert.Less(t, a[i-1].Timestamp, a[i].Timestamp)
		}
	}

	_, err = GenerateRateSeries("BTC", 10, 1, 5, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestGeneratePriceSeries(t *testing.T) {
	obs, err := GeneratePriceSeries("XMR", 100, 190, 10, 0.015, 3)
	require.NoError(t, err)
	require.Len(t, obs, 10)
	for _, o := range obs {
		require.NoError(t, o.Validate())
	}

	_, err = GeneratePriceSeries("XMR", 100, 190, 0, 0.015, 3)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestStubRateSource_FiltersAndCopies(t *testing.T) {
	orig := []*domain.RateObservation{
		{Ticker: "BTC", Timestamp: 10, Rate: 1},
		{Ticker: "BTC", Timestamp: 20, Rate: 2},
		{Ticker: "USD", Timestamp: 15, Rate: 3},
	}
	src := NewStubRateSource(orig)

	got, err := src.Fetch(context.Background(), "BTC", 0, 15)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got[0].Rate = 99
	assert.Equal(t, 1.0, orig[0].Rate)
}
