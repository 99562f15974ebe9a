package interest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
)

func window(start int64, rates ...float64) *domain.Window {
	w := &domain.Window{Ticker: "BTC", Start: start, End: start + 100}
	for i, r := range rates {
		w.Observations = append(w.Observations, &domain.RateObservation{
			Ticker: "BTC", Timestamp: start + int64(i), Rate: r,
		})
	}
	return w
}

func TestIntervals_Partition(t *testing.T) {
	windows := []*domain.Window{
		// rising run of 10 between two low values
		window(0, 1, 6, 6.1, 6.2, 6.3, 6.4, 6.5, 6.6, 6.7, 6.8, 6.9, 1),
		// falling run of 10 between two low values
		window(100, 1, 6.9, 6.8, 6.7, 6.6, 6.5, 6.4, 6.3, 6.2, 6.1, 6, 1),
	}

	grown, nonGrown, err := Intervals(windows, 10)
	require.NoError(t, err)
	require.Len(t, grown, 1)
	require.Len(t, nonGrown, 1)

	assert.Equal(t, int64(1), grown[0].Start)
	assert.True(t, grown[0].Growing)
	assert.Greater(t, grown[0].Slope, 0.0)

	assert.Equal(t, int64(101), nonGrown[0].Start)
	assert.False(t, nonGrown[0].Growing)
	assert.Less(t, nonGrown[0].Slope, 0.0)
}

func TestIntervals_Empty(t *testing.T) {
	grown, nonGrown, err := Intervals(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, grown)
	assert.Empty(t, nonGrown)
}

func TestIntervals_PropagatesScanErrors(t *testing.T) {
	_, _, err := Intervals([]*domain.Window{nil}, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAnalyze(t *testing.T) {
	var obs []*domain.RateObservation
	rates := []float64{1, 1, 1, 5, 5.1, 5.2, 5.3, 1, 1, 1, 1}
	for i, r := range rates {
		obs = append(obs, &domain.RateObservation{Ticker: "BTC", Timestamp: int64(100 + 10*i), Rate: r})
	}

	// span 100, one window
	grown, nonGrown, err := Analyze(100, obs, 4)
	require.NoError(t, err)
	require.Len(t, grown, 1)
	assert.Empty(t, nonGrown)
	assert.Len(t, grown[0].Observations, 4)

	_, _, err = Analyze(0, obs, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
