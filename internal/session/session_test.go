package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"":             StrategyAuto,
		"AUTO":         StrategyAuto,
		"ws":           StrategyStreamOnly,
		"stream_only":  StrategyStreamOnly,
		"http":         StrategyRequestOnly,
		"request_only": StrategyRequestOnly,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrategy("carrier-pigeon")
	assert.Error(t, err)
}

func TestSessionCredentials(t *testing.T) {
	s := New("broker.example.com", StrategyAuto)
	_, err := s.Token()
	assert.True(t, errors.Is(err, ErrNotLoggedIn))

	s.SetCredentials(Credentials{AccountID: 9, AccessToken: "tok", SessionID: "sid"})
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
	assert.Equal(t, "sid", s.Credentials().SessionID)

	s.ClearCredentials()
	_, err = s.Token()
	assert.Error(t, err)
}

func TestSessionConnectedFlag(t *testing.T) {
	s := New("broker.example.com", StrategyRequestOnly)
	assert.False(t, s.Connected())
	s.SetConnected(true)
	assert.True(t, s.Connected())
	assert.Equal(t, StrategyRequestOnly, s.Strategy())
	s.SetStrategy(StrategyAuto)
	assert.Equal(t, "auto", s.Strategy().String())
}
