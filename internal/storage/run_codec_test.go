package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
)

func TestRateObservationsCodec(t *testing.T) {
	obs := []*domain.RateObservation{
		{Ticker: "BTC", Timestamp: 100, Rate: 0.25},
		{Ticker: "BTC", Timestamp: 200, Rate: 0.5},
	}

	data, err := EncodeRateObservations(obs)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"t":100,"r":0.25},{"t":200,"r":0.5}]`, string(data))

	got, err := DecodeRateObservations("BTC", data)
	require.NoError(t, err)
	assert.Equal(t, obs, got)
}

func TestPriceObservationsCodec_Empty(t *testing.T) {
	data, err := EncodePriceObservations(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	got, err := DecodePriceObservations("XMR", nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodePriceObservations("XMR", []byte("{"))
	assert.Error(t, err)
}
