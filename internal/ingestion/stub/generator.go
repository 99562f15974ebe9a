package stub

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"lending-interest-lab/internal/domain"
)

// GenerateRateSeries returns n observations with unique, ascending
// timestamps drawn from [start, end] and rates in (0, 1). The same seed
// always yields the same series.
func GenerateRateSeries(ticker string, n int, start, end int64, seed uint64) ([]*domain.RateObservation, error) {
	ts, err := uniqueTimestamps(n, start, end, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	if err != nil {
		return nil, err
	}
	r := rand.New(rand.NewPCG(seed+1, seed))

	obs := make([]*domain.RateObservation, n)
	for i, t := range ts {
		obs[i] = &domain.RateObservation{Ticker: ticker, Timestamp: t, Rate: 0.0001 + r.Float64()*0.05}
	}
	return obs, nil
}

// GenerateWindows returns numWindows contiguous windows splitting
// [start, end], each holding numEntries observations with unique ascending
// timestamps inside the window. Zero windows or zero entries yield an empty result.
func GenerateWindows(ticker string, numWindows, numEntries int, start, end int64, seed uint64) ([]*domain.Window, error) {
	if numWindows < 0 || numEntries < 0 {
		return nil, fmt.Errorf("%w: negative window or entry count", domain.ErrInvalidArgument)
	}
	if numWindows == 0 || numEntries == 0 {
		return []*domain.Window{}, nil
	}
	if end <= start {
		return nil, fmt.Errorf("%w: empty time range [%d, %d]", domain.ErrInvalidArgument, start, end)
	}

	span := (end - start) / int64(numWindows)
	windows := make([]*domain.Window, numWindows)
	for i := range windows {
		ws := start + int64(i)*span
		we := ws + span
		if i == numWindows-1 {
			we = end
		}
		// Keep observations strictly inside [ws, we) so adjacent windows never share a timestamp.
		obs, err := GenerateRateSeries(ticker, numEntries, ws, we-1, seed+uint64(i))
		if err != nil {
			return nil, err
		}
		windows[i] = &domain.Window{Ticker: ticker, Start: ws, End: we, Observations: obs}
	}
	return windows, nil
}

// GeneratePriceSeries returns one observation every step seconds in
// [start, end] following a seeded random walk starting at base.
func GeneratePriceSeries(ticker string, start, end, step int64, base float64, seed uint64) ([]*domain.PriceObservation, error) {
	if step <= 0 || end < start || !(base > 0) {
		return nil, fmt.Errorf("%w: invalid price series parameters", domain.ErrInvalidArgument)
	}
	r := rand.New(rand.NewPCG(seed, seed+7))

	var obs []*domain.PriceObservation
	price := base
	for t := start; t <= end; t += step {
		obs = append(obs, &domain.PriceObservation{
			Ticker:     ticker,
			Timestamp:  t,
			ClosePrice: price,
			Volume:     1 + r.Float64()*100,
		})
		price *= 1 + (r.Float64()-0.5)*0.02
	}
	return obs, nil
}

func uniqueTimestamps(n int, start, end int64, r *rand.Rand) ([]int64, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative entry count %d", domain.ErrInvalidArgument, n)
	}
	if start <= 0 || end < start {
		return nil, fmt.Errorf("%w: invalid time range [%d, %d]", domain.ErrInvalidArgument, start, end)
	}
	if int64(n) > end-start+1 {
		return nil, fmt.Errorf("%w: %d unique timestamps do not fit in [%d, %d]", domain.ErrInvalidArgument, n, start, end)
	}

	seen := make(map[int64]struct{}, n)
	out := make([]int64, 0, n)
	for len(out) < n {
		t := start + r.Int64N(end-start+1)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
