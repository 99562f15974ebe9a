package pipeline

import (
	"context"
	"fmt"
	"math"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/ingestion/stub"
	"lending-interest-lab/internal/storage"
)

// Fixture series parameters: two weeks of 15-minute observations starting 2016-11-30.
const (
	FixtureStart = 1480464000
	FixtureDays  = 14
	FixtureStep  = 900
)

// FixturePairs are the pairs LoadFixtures stores data for.
var FixturePairs = []domain.Pair{
	{LendingTicker: "BTC", TargetTicker: "XMR"},
	{LendingTicker: "USD", TargetTicker: "ETH"},
}

// LoadFixtures populates stores with deterministic synthetic data for
// FixturePairs and returns the pairs with their range set.
func LoadFixtures(
	ctx context.Context,
	rateStore storage.RateObservationStore,
	priceStore storage.PriceObservationStore,
) ([]domain.Pair, error) {
	end := int64(FixtureStart + FixtureDays*86400 - FixtureStep)

	pairs := make([]domain.Pair, len(FixturePairs))
	for i, p := range FixturePairs {
		seed := uint64(i + 1)

		rates, err := fixtureRates(p.LendingTicker, FixtureStart, end, seed)
		if err != nil {
			return nil, err
		}
		if err := rateStore.InsertBulk(ctx, rates); err != nil {
			return nil, fmt.Errorf("load %s rates: %w", p.LendingTicker, err)
		}

		prices, err := stub.GeneratePriceSeries(p.TargetTicker, FixtureStart, end, FixtureStep, 0.01*float64(i+1), seed)
		if err != nil {
			return nil, err
		}
		if err := priceStore.InsertBulk(ctx, prices); err != nil {
			return nil, fmt.Errorf("load %s prices: %w", p.TargetTicker, err)
		}

		p.From, p.To = FixtureStart, end
		pairs[i] = p
	}
	return pairs, nil
}

// fixtureRates returns observations every FixtureStep seconds whose rate
// follows a half-day cycle plus seeded noise, so each day holds stretches
// above its average.
func fixtureRates(ticker string, start, end int64, seed uint64) ([]*domain.RateObservation, error) {
	n := int((end-start)/FixtureStep) + 1
	noise, err := stub.GenerateRateSeries(ticker, n, start, end, seed)
	if err != nil {
		return nil, err
	}

	obs := make([]*domain.RateObservation, n)
	for i := range obs {
		ts := start + int64(i)*FixtureStep
		phase := 2 * math.Pi * float64(ts-start) / (12 * 3600)
		drift := 1 + 0.002*float64(i)/float64(n)
		rate := 0.01 * drift * (1.5 + math.Sin(phase)) * (1 + noise[i].Rate)
		obs[i] = &domain.RateObservation{Ticker: ticker, Timestamp: ts, Rate: rate}
	}
	return obs, nil
}
