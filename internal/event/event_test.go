package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKindCanonical(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
		assert.Equal(t, name, k.String())
	}
}

func TestParseKindSynonyms(t *testing.T) {
	cases := map[string]Kind{
		"error":                KindError,
		"ERROR":                KindError,
		"pl":                   KindPositionPL,
		"profit":               KindPositionPL,
		"loss":                 KindPositionPL,
		"Profit_Loss":          KindPositionPL,
		"position_profit_loss": KindPositionPL,
	}
	for name, want := range cases {
		got, err := ParseKind(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "tick", "start_market_feed", "orders"} {
		_, err := ParseKind(name)
		assert.Error(t, err, name)
	}
	assert.False(t, Kind(0).Valid())
	assert.True(t, KindMarket.Valid())
}
