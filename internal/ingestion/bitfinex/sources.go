package bitfinex

import (
	"context"
	"strconv"
	"strings"

	"lending-interest-lab/internal/domain"
	"lending-interest-lab/internal/ingestion"
)

// RateSource adapts the lends history to ingestion.RateSource.
// The ticker is the lent currency, e.g. "BTC".
type RateSource struct {
	client *Client
}

// NewRateSource creates a RateSource.
func NewRateSource(client *Client) *RateSource {
	return &RateSource{client: client}
}

var _ ingestion.RateSource = (*RateSource)(nil)

// Fetch returns the lends of ticker in [from, to] as rate observations.
// Lends whose rate does not parse or is not positive are skipped.
func (s *RateSource) Fetch(ctx context.Context, ticker string, from, to int64) ([]*domain.RateObservation, error) {
	lends, err := s.client.FetchLends(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.RateObservation, 0, len(lends))
	for _, l := range lends {
		o, err := domain.ParseRateObservation(ticker, strconv.FormatInt(l.Timestamp, 10), l.Rate)
		if err != nil {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// PriceSource adapts candle history to ingestion.PriceSource.
// The ticker is the traded asset; the symbol is built as "t" + ticker + quote.
type PriceSource struct {
	client    *Client
	timeframe string
	quote     string
}

// NewPriceSource creates a PriceSource for candles of the given timeframe
// quoted in quote, e.g. ("15m", "BTC") for tXMRBTC.
func NewPriceSource(client *Client, timeframe, quote string) *PriceSource {
	return &PriceSource{client: client, timeframe: timeframe, quote: strings.ToUpper(quote)}
}

var _ ingestion.PriceSource = (*PriceSource)(nil)

// Symbol returns the trading symbol used for ticker.
func (s *PriceSource) Symbol(ticker string) string {
	return "t" + strings.ToUpper(ticker) + s.quote
}

// Fetch returns candles of ticker in [from, to] as price observations, with
// timestamps in seconds. Candles without volume are kept for the manager to drop.
func (s *PriceSource) Fetch(ctx context.Context, ticker string, from, to int64) ([]*domain.PriceObservation, error) {
	candles, err := s.client.FetchCandles(ctx, s.Symbol(ticker), s.timeframe, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.PriceObservation, len(candles))
	for i, c := range candles {
		out[i] = &domain.PriceObservation{
			Ticker:     ticker,
			Timestamp:  c.MTS / 1000,
			ClosePrice: c.Close,
			Volume:     c.Volume,
		}
	}
	return out, nil
}
