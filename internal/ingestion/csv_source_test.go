package ingestion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lending-interest-lab/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVRateSource_Fetch(t *testing.T) {
	path := writeFile(t, "lends.csv", `id,amount,rate,timestamp
1,100,0.0125,1480530000
2,200,0.0130,1480530600
3,300,0.0140,1480531200
`)

	obs, err := NewCSVRateSource(path).Fetch(context.Background(), "BTC", 1480530000, 1480530600)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, "BTC", obs[0].Ticker)
	assert.Equal(t, int64(1480530000), obs[0].Timestamp)
	assert.Equal(t, 0.0130, obs[1].Rate)
}

func TestCSVRateSource_CustomColumns(t *testing.T) {
	path := writeFile(t, "lends.csv", "ts,rate\n100,0.5\n")

	obs, err := NewCSVRateSource(path, WithRateColumns(1, 0)).Fetch(context.Background(), "USD", 0, 1000)
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.Equal(t, 0.5, obs[0].Rate)
}

func TestCSVRateSource_BadRow(t *testing.T) {
	path := writeFile(t, "lends.csv", "h,h,h,h\n1,1,abc,100\n")

	_, err := NewCSVRateSource(path).Fetch(context.Background(), "BTC", 0, 1000)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "line 2")
}

func TestCSVPriceSource_Fetch(t *testing.T) {
	path := writeFile(t, "xmr.csv", `1480529700000,0.0150,0.0151,0.0152,0.0149,1200.5
1480530600000,0.0151,0.0155,0.0156,0.0150,800
1480531500000,0.0155,0.0154,0.0157,0.0153,300
`)

	obs, err := NewCSVPriceSource(path).Fetch(context.Background(), "XMR", 1480529700, 1480530600)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, int64(1480529700), obs[0].Timestamp)
	assert.Equal(t, 0.0151, obs[0].ClosePrice)
	assert.Equal(t, 1200.5, obs[0].Volume)
}

func TestCSVPriceSource_MissingFile(t *testing.T) {
	_, err := NewCSVPriceSource(filepath.Join(t.TempDir(), "none.csv")).Fetch(context.Background(), "XMR", 0, 1)
	assert.Error(t, err)
}
