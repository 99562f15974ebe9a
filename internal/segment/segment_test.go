package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
)

// series builds BTC observations at the given timestamps with rate 1.0.
func series(timestamps ...int64) []*domain.RateObservation {
	obs := make([]*domain.RateObservation, len(timestamps))
	for i, ts := range timestamps {
		obs[i] = &domain.RateObservation{Ticker: "BTC", Timestamp: ts, Rate: 1.0}
	}
	return obs
}

func TestSegment_InvalidDuration(t *testing.T) {
	obs := series(100, 200, 300)

	_, err := Segment(0, obs)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = Segment(-5, obs)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_EmptyInput(t *testing.T) {
	_, err := Segment(5, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_SingleEntry(t *testing.T) {
	_, err := Segment(5, series(141212))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_SameTimestampEntries(t *testing.T) {
	obs := make([]*domain.RateObservation, 10)
	for i := range obs {
		obs[i] = &domain.RateObservation{Ticker: "BTC", Timestamp: 161382, Rate: 2.5}
	}

	// Equal timestamps fail either as unordered or as degenerate input.
	_, err := Segment(10, obs)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_Unordered(t *testing.T) {
	_, err := Segment(10, series(300, 100, 200))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_MixedTickers(t *testing.T) {
	obs := series(100, 200)
	obs[1] = &domain.RateObservation{Ticker: "ETH", Timestamp: 200, Rate: 1}

	_, err := Segment(50, obs)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_TooManyWindows(t *testing.T) {
	// span 1000 with duration 1 -> 1000 windows for 3 observations
	_, err := Segment(1, series(0+1, 500, 1001))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSegment_CorrectDuration(t *testing.T) {
	obs := series(1000, 1010, 1020, 1030, 1040, 1050, 1060, 1070, 1080, 1095)

	windows, err := Segment(30, obs)
	require.NoError(t, err)

	// span 95 -> ceil(95/30) = 4 windows, last one truncated
	require.Len(t, windows, 4)
	for _, w := range windows[:3] {
		assert.Equal(t, int64(30), w.Duration())
	}
	assert.Equal(t, int64(5), windows[3].Duration())
	assert.Equal(t, int64(1095), windows[3].End)
}

func TestSegment_ContiguousCoverage(t *testing.T) {
	obs := series(100, 130, 150, 170, 199, 200, 230, 260, 290, 300, 330, 360, 399, 400)

	windows, err := Segment(100, obs)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	assert.Equal(t, int64(100), windows[0].Start)
	assert.Equal(t, windows[len(windows)-1].End, int64(400))
	for i := 1; i < len(windows); i++ {
		assert.Equal(t, windows[i-1].End, windows[i].Start, "windows must be contiguous")
	}

	// Every observation appears exactly once.
	seen := make(map[int64]int)
	total := 0
	for _, w := range windows {
		require.NoError(t, w.Validate())
		for _, o := range w.Observations {
			seen[o.Timestamp]++
			total++
		}
	}
	assert.Equal(t, len(obs), total)
	for ts, n := range seen {
		assert.Equal(t, 1, n, "timestamp %d assigned %d times", ts, n)
	}
}

func TestSegment_BoundaryTimestampGoesToLaterWindow(t *testing.T) {
	obs := series(0+100, 150, 200, 250, 300)

	windows, err := Segment(100, obs)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	// 200 is the shared boundary: half-open windows give it to the second window.
	assert.Equal(t, []int64{100, 150}, timestamps(windows[0]))
	assert.Equal(t, []int64{200, 250, 300}, timestamps(windows[1]))
}

func TestSegment_FinalWindowClosed(t *testing.T) {
	windows, err := Segment(50, series(100, 120, 150))
	require.NoError(t, err)
	require.Len(t, windows, 1)

	assert.Equal(t, []int64{100, 120, 150}, timestamps(windows[0]))
}

func TestSegment_EmptyWindowOnGap(t *testing.T) {
	obs := series(0+1, 2, 3, 4, 5, 6, 31)

	windows, err := Segment(10, obs)
	require.NoError(t, err)
	require.Len(t, windows, 3)

	assert.Len(t, windows[0].Observations, 6)
	assert.Empty(t, windows[1].Observations)
	assert.Len(t, windows[2].Observations, 1)
}

func TestSegmentBy(t *testing.T) {
	day := int64(24 * 60 * 60)
	obs := series(day, 2*day, 3*day, 4*day, 5*day)

	windows, err := SegmentBy(48*time.Hour, obs)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
}

func timestamps(w *domain.Window) []int64 {
	out := make([]int64, len(w.Observations))
	for i, o := range w.Observations {
		out[i] = o.Timestamp
	}
	return out
}
