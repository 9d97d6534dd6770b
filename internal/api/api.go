// Package api maps the server's REST endpoints onto typed calls.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hstrader/internal/rest"
	"hstrader/models"
)

const (
	pathToken     = "/auth/v1/oauth2/token"
	pathRefresh   = "/auth/v1/oauth2/refresh/token"
	pathLogout    = "/auth/v1/oauth2/logout"
	pathAccount   = "/api/v1/accounts/me"
	pathPositions = "/api/v1/positions/accounts/me"
	pathPosition  = "/api/v1/positions/%d/accounts/me"
	pathOrders    = "/api/v1/orders/accounts/me"
	pathOrder     = "/api/v1/orders/%d/accounts/me"
	pathSymbols   = "/api/v1/symbols/me"
	pathSymbol    = "/api/v1/symbols/me/by_name"
	pathDeals     = "/api/v1/deals/accounts/me"
	pathHistory   = "/api/v1/market/history"

	// DefaultCountBack is the number of bars requested when none is given.
	DefaultCountBack = 300
)

// Doer is satisfied by *rest.Client.
type Doer interface {
	Do(ctx context.Context, method, path string, query url.Values, body interface{}, opts ...rest.RequestOption) (*rest.Envelope, error)
}

// API issues typed requests.
type API struct {
	do  Doer
	now func() time.Time
}

func New(do Doer) *API {
	return &API{do: do, now: time.Now}
}

func (a *API) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	env, err := a.do.Do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return env.Decode(out)
}

func (a *API) send(ctx context.Context, method, path string, body interface{}) (json.RawMessage, error) {
	env, err := a.do.Do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

var historyQuery = url.Values{"active": {"false"}}

// Login exchanges client credentials for tokens.
func (a *API) Login(ctx context.Context, clientID, clientSecret string) (models.AuthResponse, error) {
	var auth models.AuthResponse
	env, err := a.do.Do(ctx, http.MethodPost, pathToken, url.Values{"grant_type": {"client_credentials"}}, nil,
		rest.WithBasicAuth(clientID, clientSecret))
	if err != nil {
		return auth, fmt.Errorf("login: %w", err)
	}
	if err := env.Decode(&auth); err != nil {
		return auth, fmt.Errorf("login: %w", err)
	}
	return auth, nil
}

// Refresh exchanges a refresh token for new credentials.
func (a *API) Refresh(ctx context.Context, refreshToken string) (models.AuthResponse, error) {
	var auth models.AuthResponse
	env, err := a.do.Do(ctx, http.MethodPost, pathRefresh, nil, map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return auth, fmt.Errorf("refresh token: %w", err)
	}
	if err := env.Decode(&auth); err != nil {
		return auth, fmt.Errorf("refresh token: %w", err)
	}
	return auth, nil
}

func (a *API) Logout(ctx context.Context) error {
	if _, err := a.do.Do(ctx, http.MethodDelete, pathLogout, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *API) Account(ctx context.Context) (models.Account, error) {
	var acc models.Account
	if err := a.get(ctx, pathAccount, nil, &acc); err != nil {
		return models.Account{}, err
	}
	return acc, nil
}

// Symbols returns the catalogue exactly as the server sent it.
func (a *API) Symbols(ctx context.Context) ([]models.Symbol, error) {
	var out []models.Symbol
	if err := a.get(ctx, pathSymbols, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Symbol(ctx context.Context, name string) (models.Symbol, error) {
	var s models.Symbol
	if err := a.get(ctx, pathSymbol, url.Values{"symbol": {name}}, &s); err != nil {
		return models.Symbol{}, err
	}
	return s, nil
}

func (a *API) Orders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := a.get(ctx, pathOrders, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) OrdersHistory(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := a.get(ctx, pathOrders, historyQuery, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Positions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	if err := a.get(ctx, pathPositions, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) PositionsHistory(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	if err := a.get(ctx, pathPositions, historyQuery, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Deals(ctx context.Context) ([]models.Deal, error) {
	var out []models.Deal
	if err := a.get(ctx, pathDeals, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateOrder returns the server's data member unparsed.
func (a *API) CreateOrder(ctx context.Context, req models.CreateOrder) (json.RawMessage, error) {
	return a.send(ctx, http.MethodPost, pathOrders, req)
}

func (a *API) UpdateOrder(ctx context.Context, req models.UpdateOrder) (json.RawMessage, error) {
	return a.send(ctx, http.MethodPut, fmt.Sprintf(pathOrder, req.OrderID), req)
}

func (a *API) CancelOrder(ctx context.Context, req models.CancelOrder) error {
	_, err := a.send(ctx, http.MethodPost, fmt.Sprintf(pathOrder, req.OrderID), nil)
	return err
}

func (a *API) UpdatePosition(ctx context.Context, req models.UpdatePosition) (json.RawMessage, error) {
	return a.send(ctx, http.MethodPut, fmt.Sprintf(pathPosition, req.PositionID), req)
}

func (a *API) ClosePosition(ctx context.Context, req models.ClosePosition) (json.RawMessage, error) {
	return a.send(ctx, http.MethodPost, fmt.Sprintf(pathPosition, req.PositionID), req)
}

// HistoryRequest selects bars of one instrument. Zero From means CountBack
// bars ending at To; zero To means now.
type HistoryRequest struct {
	SymbolID   int64
	From       time.Time
	To         time.Time
	Resolution models.Resolution
	Side       models.MarketType
	CountBack  int
}

func (r HistoryRequest) withDefaults(now time.Time) (HistoryRequest, error) {
	if r.SymbolID == 0 {
		return r, fmt.Errorf("market history: symbol id is required")
	}
	if r.Resolution == "" {
		r.Resolution = models.Resolution1m
	}
	res, err := models.ParseResolution(string(r.Resolution))
	if err != nil {
		return r, err
	}
	r.Resolution = res
	if r.Side == "" {
		r.Side = models.MarketBid
	}
	side, err := models.ParseMarketType(string(r.Side))
	if err != nil {
		return r, err
	}
	r.Side = side
	if r.CountBack <= 0 {
		r.CountBack = DefaultCountBack
	}
	if r.To.IsZero() {
		r.To = now
	}
	if r.From.IsZero() {
		r.From = r.To.Add(-r.Resolution.Duration() * time.Duration(r.CountBack))
	}
	return r, nil
}

// MarketHistory returns raw bars; spread adjustment is the caller's job.
func (a *API) MarketHistory(ctx context.Context, req HistoryRequest) ([]models.HistoryTick, error) {
	req, err := req.withDefaults(a.now())
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"symbol_id":  {strconv.FormatInt(req.SymbolID, 10)},
		"from":       {strconv.FormatInt(req.From.Unix(), 10)},
		"to":         {strconv.FormatInt(req.To.Unix(), 10)},
		"resolution": {string(req.Resolution)},
		"type":       {string(req.Side)},
		"count_back": {strconv.Itoa(req.CountBack)},
	}
	var bars []models.HistoryTick
	if err := a.get(ctx, pathHistory, query, &bars); err != nil {
		return nil, fmt.Errorf("market history: %w", err)
	}
	return bars, nil
}
