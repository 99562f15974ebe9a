package storage

import (
	"encoding/json"
	"fmt"

	"lending-interest-lab/internal/domain"
)

// SQL stores keep a run's lending observations and interest entries as JSON
// arrays next to the run row. The ticker is implied by the run.

type rateRow struct {
	T int64   `json:"t"`
	R float64 `json:"r"`
}

type priceRow struct {
	T int64   `json:"t"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

// EncodeRateObservations encodes observations as a compact JSON array.
func EncodeRateObservations(obs []*domain.RateObservation) ([]byte, error) {
	rows := make([]rateRow, len(obs))
	for i, o := range obs {
		rows[i] = rateRow{T: o.Timestamp, R: o.Rate}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode rate observations: %w", err)
	}
	return data, nil
}

// DecodeRateObservations is the inverse of EncodeRateObservations.
func DecodeRateObservations(ticker string, data []byte) ([]*domain.RateObservation, error) {
	var rows []rateRow
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode rate observations: %w", err)
		}
	}
	obs := make([]*domain.RateObservation, len(rows))
	for i, r := range rows {
		obs[i] = &domain.RateObservation{Ticker: ticker, Timestamp: r.T, Rate: r.R}
	}
	return obs, nil
}

// EncodePriceObservations encodes observations as a compact JSON array.
func EncodePriceObservations(obs []*domain.PriceObservation) ([]byte, error) {
	rows := make([]priceRow, len(obs))
	for i, o := range obs {
		rows[i] = priceRow{T: o.Timestamp, C: o.ClosePrice, V: o.Volume}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("encode price observations: %w", err)
	}
	return data, nil
}

// DecodePriceObservations is the inverse of EncodePriceObservations.
func DecodePriceObservations(ticker string, data []byte) ([]*domain.PriceObservation, error) {
	var rows []priceRow
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode price observations: %w", err)
		}
	}
	obs := make([]*domain.PriceObservation, len(rows))
	for i, r := range rows {
		obs[i] = &domain.PriceObservation{Ticker: ticker, Timestamp: r.T, ClosePrice: r.C, Volume: r.V}
	}
	return obs, nil
}
