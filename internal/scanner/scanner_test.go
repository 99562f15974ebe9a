package scanner

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/segment"
)

// window builds a BTC window starting at start with one observation per
// second carrying the given rates. The window spans 100 seconds.
func window(start int64, rates ...float64) *domain.Window {
	w := &domain.Window{Ticker: "BTC", Start: start, End: start + 100}
	for i, r := range rates {
		w.Observations = append(w.Observations, &domain.RateObservation{
			Ticker:    "BTC",
			Timestamp: start + int64(i),
			Rate:      r,
		})
	}
	return w
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func concat(parts ...[]float64) []float64 {
	var out []float64
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestScan_EmptyInput(t *testing.T) {
	runs, err := Scan(nil, DefaultMinRunLength)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestScan_InvalidMinRunLength(t *testing.T) {
	_, err := Scan([]*domain.Window{window(0, 1, 2)}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestScan_InvalidWindows(t *testing.T) {
	_, err := Scan([]*domain.Window{nil}, DefaultMinRunLength)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	unordered := window(0, 1, 2, 3)
	unordered.Observations[0], unordered.Observations[2] = unordered.Observations[2], unordered.Observations[0]
	_, err = Scan([]*domain.Window{unordered}, DefaultMinRunLength)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	other := window(200, 1, 2)
	other.Ticker = "ETH"
	_, err = Scan([]*domain.Window{window(0, 1, 2), other}, DefaultMinRunLength)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// overlapping windows break global ordering
	_, err = Scan([]*domain.Window{window(0, 1, 2, 3), window(1, 1, 2)}, DefaultMinRunLength)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestScan_RunInsideWindow(t *testing.T) {
	// Window 2 rates [4, 6 x10, 4]: only the 6s are at or above the average.
	windows := []*domain.Window{
		window(0, 1, 2, 1, 2, 1),
		window(100, concat([]float64{4}, repeat(6, 10), []float64{4})...),
		window(200, 3, 1, 3, 1),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, "BTC", r.Ticker)
	assert.Len(t, r.Observations, 10)
	assert.Equal(t, int64(101), r.Start)
	assert.Equal(t, int64(110), r.End)
	for _, o := range r.Observations {
		assert.Equal(t, 6.0, o.Rate)
	}
}

func TestScan_ShortRunsDropped(t *testing.T) {
	windows := []*domain.Window{
		window(0, concat([]float64{4}, repeat(6, 9), []float64{4})...),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	assert.Empty(t, runs)

	// threshold is inclusive
	runs, err = Scan(windows, 9)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Len(t, runs[0].Observations, 9)
}

func TestScan_MultipleRunsInWindow(t *testing.T) {
	rates := concat(repeat(5, 3), []float64{1}, repeat(5, 4), []float64{1})
	runs, err := Scan([]*domain.Window{window(0, rates...)}, 3)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, int64(0), runs[0].Start)
	assert.Equal(t, int64(2), runs[0].End)
	assert.Equal(t, int64(4), runs[1].Start)
	assert.Equal(t, int64(7), runs[1].End)
	assert.Less(t, runs[0].Start, runs[1].Start)
}

func TestScan_ContinuationAcrossWindows(t *testing.T) {
	// Window 2 ends inside a run of ten 6s. Window 3 continues with three 6s
	// before a 1 falls below the running average of 83/15.
	windows := []*domain.Window{
		window(0, 1, 2, 1, 2, 1),
		window(100, concat([]float64{4}, repeat(6, 10))...),
		window(200, 6, 6, 6, 1, 9, 9),
		window(300, 3, 1, 3, 1),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Len(t, r.Observations, 13)
	assert.Equal(t, int64(101), r.Start)
	assert.Equal(t, int64(202), r.End, "run ends at the third entry of window 3")
}

func TestScan_ContinuationResumesAfterStopWindow(t *testing.T) {
	// The run stops inside window 3. The remaining window 3 entries are not
	// rescanned; window 4 holds a run of its own.
	windows := []*domain.Window{
		window(100, concat([]float64{4}, repeat(6, 10))...),
		window(200, 1, 9, 9, 9),
		window(300, concat([]float64{1}, repeat(7, 10), []float64{1})...),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, int64(101), runs[0].Start)
	assert.Equal(t, int64(110), runs[0].End)
	assert.Equal(t, int64(301), runs[1].Start)
	assert.Equal(t, int64(310), runs[1].End)
}

func TestScan_ContinuationThroughEmptyWindow(t *testing.T) {
	windows := []*domain.Window{
		window(100, concat([]float64{4}, repeat(6, 10))...),
		window(200),
		window(300, 6, 6, 1),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Len(t, runs[0].Observations, 12)
	assert.Equal(t, int64(301), runs[0].End)
}

func TestScan_TrailingOpenRunDropped(t *testing.T) {
	windows := []*domain.Window{
		window(100, concat([]float64{4}, repeat(6, 10))...),
		window(200, 6, 6, 6),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestScan_ContinuationUsesRunningAverage(t *testing.T) {
	// 5.9 clears the running average (64+5.9)/12; 0.5 does not.
	windows := []*domain.Window{
		window(100, concat([]float64{4}, repeat(6, 10))...),
		window(200, 5.9, 0.5),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Len(t, runs[0].Observations, 11)
	assert.Equal(t, int64(200), runs[0].End)
}

func TestScan_ContinuationAverageRestartsPerWindow(t *testing.T) {
	// The run crosses all of window 2. In window 3 the bar is built from
	// window 1 and window 3 only: (64+6.5)/12 admits 6.5, (64+7.5)/13 rejects 1.
	// Counting the 10s of window 2 as well would reject 6.5.
	windows := []*domain.Window{
		window(100, concat([]float64{4}, repeat(6, 10))...),
		window(200, 10, 10, 10),
		window(300, 6.5, 1),
	}

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Len(t, r.Observations, 14)
	assert.Equal(t, int64(101), r.Start)
	assert.Equal(t, int64(300), r.End)
}

func TestScan_SegmentedSeriesInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	obs := make([]*domain.RateObservation, 2000)
	ts := int64(1_480_000_000)
	rate := 1.0
	for i := range obs {
		ts += int64(60 + rng.Intn(600))
		rate += rng.NormFloat64() * 0.05
		if rate < 0.01 {
			rate = 0.01
		}
		obs[i] = &domain.RateObservation{Ticker: "BTC", Timestamp: ts, Rate: rate}
	}

	windows, err := segment.Segment(24*60*60, obs)
	require.NoError(t, err)

	runs, err := Scan(windows, DefaultMinRunLength)
	require.NoError(t, err)

	var prevEnd int64
	for i, r := range runs {
		assert.GreaterOrEqual(t, len(r.Observations), DefaultMinRunLength)
		require.NoError(t, domain.CheckStrictlyAscending(r.Observations))
		assert.Equal(t, r.Observations[0].Timestamp, r.Start)
		assert.Equal(t, r.Observations[len(r.Observations)-1].Timestamp, r.End)
		if i > 0 {
			assert.Greater(t, r.Start, prevEnd, "runs must not overlap")
		}
		prevEnd = r.End
	}
}
