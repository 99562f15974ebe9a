package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
)

// lendingRun builds a BTC run with observations every 100s starting at 1000,
// rates 1, 2, 3, ...
func lendingRun(t *testing.T, n int) *domain.InterestRun {
	t.Helper()
	obs := make([]*domain.RateObservation, n)
	for i := range obs {
		obs[i] = &domain.RateObservation{Ticker: "BTC", Timestamp: int64(1000 + 100*i), Rate: float64(i + 1)}
	}
	r, err := domain.NewInterestRun("BTC", obs)
	require.NoError(t, err)
	return r
}

func prices(timestamps ...int64) []*domain.PriceObservation {
	out := make([]*domain.PriceObservation, len(timestamps))
	for i, ts := range timestamps {
		out[i] = &domain.PriceObservation{Ticker: "XMR", Timestamp: ts, ClosePrice: 0.01 + float64(i)*0.001, Volume: 10}
	}
	return out
}

func TestAlign_AlreadyAligned(t *testing.T) {
	r := lendingRun(t, 5) // 1000..1400

	got, err := Align(r, prices(900, 1000, 1200, 1400, 1500))
	require.NoError(t, err)
	assert.Same(t, r, got)

	require.Len(t, r.InterestEntries, 3)
	assert.Equal(t, int64(1000), r.InterestEntries[0].Timestamp)
	assert.Equal(t, int64(1400), r.InterestEntries[2].Timestamp)
	assert.Equal(t, int64(1000), r.Start)
	assert.Equal(t, int64(1400), r.End)
	assert.Equal(t, 1.0, r.Observations[0].Rate)
	assert.Equal(t, "XMR", r.TargetTicker)
	assert.True(t, r.Aligned)
}

func TestAlign_InterpolatesHead(t *testing.T) {
	r := lendingRun(t, 5)
	original := r.Observations[0]

	_, err := Align(r, prices(1030, 1200, 1400))
	require.NoError(t, err)

	first := r.Observations[0]
	assert.Equal(t, int64(1030), first.Timestamp)
	assert.Equal(t, int64(1030), r.Start)
	assert.InDelta(t, 1.3, first.Rate, 1e-12)
	assert.Greater(t, first.Rate, 1.0)
	assert.Less(t, first.Rate, 2.0)
	assert.Len(t, r.Observations, 5)

	// shared observation is not mutated
	assert.Equal(t, int64(1000), original.Timestamp)
}

func TestAlign_InterpolatesTail(t *testing.T) {
	r := lendingRun(t, 5)

	_, err := Align(r, prices(1000, 1200, 1350))
	require.NoError(t, err)

	last := r.Observations[len(r.Observations)-1]
	assert.Equal(t, int64(1350), last.Timestamp)
	assert.Equal(t, int64(1350), r.End)
	assert.InDelta(t, 4.5, last.Rate, 1e-12)
}

func TestAlign_BothBoundaries(t *testing.T) {
	r := lendingRun(t, 2) // 1000, 1100

	_, err := Align(r, prices(1020, 1080))
	require.NoError(t, err)
	require.Len(t, r.Observations, 2)
	assert.Equal(t, int64(1020), r.Start)
	assert.Equal(t, int64(1080), r.End)
	assert.InDelta(t, 1.2, r.Observations[0].Rate, 1e-12)
}

func TestAlign_GapEqualToSpacingDropsEntry(t *testing.T) {
	r := lendingRun(t, 5)

	_, err := Align(r, prices(1100, 1200, 1300))
	require.NoError(t, err)
	require.Len(t, r.Observations, 3)
	assert.Equal(t, int64(1100), r.Start)
	assert.Equal(t, int64(1300), r.End)
}

func TestAlign_ExtrapolationRejected(t *testing.T) {
	r := lendingRun(t, 5)

	// only price inside the run is 150s after start; spacing is 100s
	_, err := Align(r, prices(1150))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	// run untouched
	assert.Equal(t, int64(1000), r.Start)
	assert.Empty(t, r.InterestEntries)
	assert.False(t, r.Aligned)
}

func TestAlign_NoPricesInRange(t *testing.T) {
	r := lendingRun(t, 3)

	_, err := Align(r, prices(100, 200, 5000))
	require.NoError(t, err)
	assert.Empty(t, r.InterestEntries)
	assert.Equal(t, int64(1000), r.Start)
	assert.Equal(t, int64(1200), r.End)
	assert.True(t, r.Aligned)
}

func TestAlign_RejectsSecondAlignment(t *testing.T) {
	r := lendingRun(t, 3)
	_, err := Align(r, prices(1000, 1200))
	require.NoError(t, err)

	_, err = Align(r, prices(1000, 1200))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAlign_UnorderedPrices(t *testing.T) {
	r := lendingRun(t, 3)
	_, err := Align(r, prices(1200, 1000))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = Align(nil, prices(1000))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAlign_SingleObservationNeedsNoInterpolation(t *testing.T) {
	obs := []*domain.RateObservation{{Ticker: "BTC", Timestamp: 1000, Rate: 1}}
	r, err := domain.NewInterestRun("BTC", obs)
	require.NoError(t, err)

	_, err = Align(r, prices(1000))
	require.NoError(t, err)
	assert.Len(t, r.InterestEntries, 1)
}
