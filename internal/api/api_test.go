package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hstrader/internal/rest"
	"hstrader/models"
)

type call struct {
	method string
	path   string
	query  url.Values
	body   interface{}
	opts   int
}

type fakeDoer struct {
	calls []call
	data  string
	err   error
}

func (f *fakeDoer) Do(ctx context.Context, method, path string, query url.Values, body interface{}, opts ...rest.RequestOption) (*rest.Envelope, error) {
	f.calls = append(f.calls, call{method: method, path: path, query: query, body: body, opts: len(opts)})
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Envelope{Success: true, Data: json.RawMessage(f.data)}, nil
}

func (f *fakeDoer) last() call { return f.calls[len(f.calls)-1] }

func TestLogin(t *testing.T) {
	d := &fakeDoer{data: `{"account_id":12,"access_token":"a","refresh_token":"r","session_id":"s"}`}
	auth, err := New(d).Login(context.Background(), "id", "secret")
	require.NoError(t, err)

	assert.Equal(t, models.AuthResponse{AccountID: 12, AccessToken: "a", RefreshToken: "r", SessionID: "s"}, auth)
	c := d.last()
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/auth/v1/oauth2/token", c.path)
	assert.Equal(t, "client_credentials", c.query.Get("grant_type"))
	assert.Equal(t, 1, c.opts)
}

func TestRefreshAndLogout(t *testing.T) {
	d := &fakeDoer{data: `{"access_token":"b"}`}
	a := New(d)

	auth, err := a.Refresh(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, "b", auth.AccessToken)
	assert.Equal(t, "/auth/v1/oauth2/refresh/token", d.last().path)
	assert.Equal(t, map[string]string{"refresh_token": "r"}, d.last().body)

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, http.MethodDelete, d.last().method)
	assert.Equal(t, "/auth/v1/oauth2/logout", d.last().path)
}

func TestQueries(t *testing.T) {
	d := &fakeDoer{data: `[]`}
	a := New(d)
	ctx := context.Background()

	cases := []struct {
		name   string
		run    func() error
		path   string
		active string
	}{
		{"orders", func() error { _, err := a.Orders(ctx); return err }, "/api/v1/orders/accounts/me", ""},
		{"orders history", func() error { _, err := a.OrdersHistory(ctx); return err }, "/api/v1/orders/accounts/me", "false"},
		{"positions", func() error { _, err := a.Positions(ctx); return err }, "/api/v1/positions/accounts/me", ""},
		{"positions history", func() error { _, err := a.PositionsHistory(ctx); return err }, "/api/v1/positions/accounts/me", "false"},
		{"deals", func() error { _, err := a.Deals(ctx); return err }, "/api/v1/deals/accounts/me", ""},
		{"symbols", func() error { _, err := a.Symbols(ctx); return err }, "/api/v1/symbols/me", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.run())
			c := d.last()
			assert.Equal(t, http.MethodGet, c.method)
			assert.Equal(t, tc.path, c.path)
			assert.Equal(t, tc.active, c.query.Get("active"))
		})
	}
}

func TestSymbolByName(t *testing.T) {
	d := &fakeDoer{data: `{"id":3,"symbol":"EURUSD","digits":5}`}
	s, err := New(d).Symbol(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.ID)
	assert.Equal(t, "/api/v1/symbols/me/by_name", d.last().path)
	assert.Equal(t, "EURUSD", d.last().query.Get("symbol"))
}

func TestCommands(t *testing.T) {
	d := &fakeDoer{data: `{"id":1}`}
	a := New(d)
	ctx := context.Background()

	_, err := a.CreateOrder(ctx, models.CreateOrder{SymbolID: 1, Volume: 1})
	require.NoError(t, err)
	assert.Equal(t, call{method: http.MethodPost, path: "/api/v1/orders/accounts/me", body: models.CreateOrder{SymbolID: 1, Volume: 1}}, d.last())

	_, err = a.UpdateOrder(ctx, models.UpdateOrder{OrderID: 9})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, d.last().method)
	assert.Equal(t, "/api/v1/orders/9/accounts/me", d.last().path)

	require.NoError(t, a.CancelOrder(ctx, models.CancelOrder{OrderID: 9}))
	assert.Equal(t, http.MethodPost, d.last().method)
	assert.Equal(t, "/api/v1/orders/9/accounts/me", d.last().path)
	assert.Nil(t, d.last().body)

	_, err = a.UpdatePosition(ctx, models.UpdatePosition{PositionID: 4})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, d.last().method)
	assert.Equal(t, "/api/v1/positions/4/accounts/me", d.last().path)

	_, err = a.ClosePosition(ctx, models.ClosePosition{PositionID: 4, Volume: 0.5})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, d.last().method)
	assert.Equal(t, models.ClosePosition{PositionID: 4, Volume: 0.5}, d.last().body)
}

func TestMarketHistoryDefaults(t *testing.T) {
	d := &fakeDoer{data: `[{"time":1700000000,"open":1,"high":2,"low":0.5,"close":1.5}]`}
	a := New(d)
	now := time.Unix(1700003600, 0)
	a.now = func() time.Time { return now }

	bars, err := a.MarketHistory(context.Background(), HistoryRequest{SymbolID: 7})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.5, bars[0].Close)

	q := d.last().query
	assert.Equal(t, "/api/v1/market/history", d.last().path)
	assert.Equal(t, "7", q.Get("symbol_id"))
	assert.Equal(t, "1700003600", q.Get("to"))
	assert.Equal(t, "1699985600", q.Get("from"))
	assert.Equal(t, "1m", q.Get("resolution"))
	assert.Equal(t, "bid", q.Get("type"))
	assert.Equal(t, "300", q.Get("count_back"))
}

func TestMarketHistoryExplicitRange(t *testing.T) {
	d := &fakeDoer{data: `[]`}
	from, to := time.Unix(1000, 0), time.Unix(5000, 0)
	_, err := New(d).MarketHistory(context.Background(), HistoryRequest{
		SymbolID: 1, From: from, To: to, Resolution: "1H", Side: "ASK", CountBack: 10,
	})
	require.NoError(t, err)

	q := d.last().query
	assert.Equal(t, "1000", q.Get("from"))
	assert.Equal(t, "5000", q.Get("to"))
	assert.Equal(t, "1h", q.Get("resolution"))
	assert.Equal(t, "ask", q.Get("type"))
	assert.Equal(t, "10", q.Get("count_back"))
}

func TestMarketHistoryValidation(t *testing.T) {
	d := &fakeDoer{}
	a := New(d)
	_, err := a.MarketHistory(context.Background(), HistoryRequest{})
	assert.Error(t, err)
	_, err = a.MarketHistory(context.Background(), HistoryRequest{SymbolID: 1, Resolution: "2m"})
	assert.Error(t, err)
	_, err = a.MarketHistory(context.Background(), HistoryRequest{SymbolID: 1, Side: "mid"})
	assert.Error(t, err)
	assert.Empty(t, d.calls)
}

func TestErrorsPropagate(t *testing.T) {
	upstream := &rest.UpstreamError{StatusCode: 401, Message: "unauthorized"}
	_, err := New(&fakeDoer{err: upstream}).Account(context.Background())
	var target *rest.UpstreamError
	assert.True(t, errors.As(err, &target))
}
