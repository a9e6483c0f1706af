package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBybitExchange(t *testing.T) {
	mainnet := NewBybitExchange("key", "secret", false)
	require.NotNil(t, mainnet)
	require.NotNil(t, mainnet.client)

	testnet := NewBybitExchange("key", "secret", true)
	require.NotNil(t, testnet)
	require.NotNil(t, testnet.client)
}

func TestToBybitInterval(t *testing.T) {
	cases := []struct {
		interval string
		want     string
	}{
		{"1m", "1"},
		{"5m", "5"},
		{"30m", "30"},
		{"1h", "60"},
		{"4h", "240"},
		{"1d", "D"},
		{"1w", "W"},
	}
	for _, tc := range cases {
		got, err := toBybitInterval(tc.interval)
		require.NoError(t, err, tc.interval)
		assert.Equal(t, tc.want, got)
	}

	_, err := toBybitInterval("7m")
	require.Error(t, err)
}

func TestParseMillisTimestamp(t *testing.T) {
	ts, err := parseMillisTimestamp("1709294400000")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), ts.UTC())

	_, err = parseMillisTimestamp("not-a-number")
	require.Error(t, err)
}
