// Package client is the public entry point: it wires the session, the
// instrument cache, both transports and the event dispatcher together.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"hstrader/config"
	"hstrader/internal/api"
	"hstrader/internal/cache"
	"hstrader/internal/dispatch"
	"hstrader/internal/rest"
	"hstrader/internal/router"
	"hstrader/internal/session"
	"hstrader/internal/spread"
	"hstrader/internal/stream"
	"hstrader/logger"
	"hstrader/models"
)

// HistoryRequest selects market history bars.
type HistoryRequest = api.HistoryRequest

var (
	ErrNotConnected = session.ErrNotConnected
	ErrNotLoggedIn  = session.ErrNotLoggedIn
	// ErrNoRefreshToken is returned by RefreshToken before a login.
	ErrNoRefreshToken = errors.New("refresh token is missing")
)

type options struct {
	insecure   bool
	httpClient *http.Client
	dialer     stream.Dialer
}

// Option customises New.
type Option func(*options)

// WithInsecureTransport uses http:// and ws:// instead of https:// and wss://.
func WithInsecureTransport() Option {
	return func(o *options) { o.insecure = true }
}

// WithHTTPClient replaces the HTTP client of the request transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithDialer replaces the websocket dialer of the stream.
func WithDialer(d stream.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

type Client struct {
	cfg         *config.Config
	session     *session.Session
	instruments *cache.Instruments
	dispatcher  *dispatch.Dispatcher
	api         *api.API
	stream      *stream.Conn
	router      *router.Router
	log         *logger.Entry
}

// New builds a client from configuration. Nothing is sent until Login.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client: nil configuration")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	httpScheme, wsScheme := "https", "wss"
	if o.insecure {
		httpScheme, wsScheme = "http", "ws"
	}
	userAgent := fmt.Sprintf("%s/%s", cfg.Client.Name, cfg.Client.Version)

	sess := session.New(cfg.Server.URL, cfg.StrategyValue())
	instruments := cache.NewInstruments()
	dispatcher := dispatch.New(instruments)

	transport := rest.New(rest.Options{
		BaseURL:           httpScheme + "://" + cfg.Server.URL,
		UserAgent:         userAgent,
		Timeout:           cfg.Server.Timeout,
		RequestsPerSecond: cfg.REST.RequestsPerSecond,
		BurstSize:         cfg.REST.BurstSize,
		Token:             sess.Token,
		HTTPClient:        o.httpClient,
	})
	endpoints := api.New(transport)

	dialer := o.dialer
	if dialer == nil {
		dialer = stream.WebsocketDialer{
			HandshakeTimeout: cfg.Stream.HandshakeTimeout,
			ReadBufferSize:   cfg.Stream.ReadBufferBytes,
		}
	}
	conn := stream.New(sess, dispatcher, dialer, stream.Options{
		UserAgent:    userAgent,
		PingInterval: cfg.Stream.PingInterval,
		FrameBuffer:  cfg.Stream.FrameBuffer,
		Scheme:       wsScheme,
	})

	return &Client{
		cfg:         cfg,
		session:     sess,
		instruments: instruments,
		dispatcher:  dispatcher,
		api:         endpoints,
		stream:      conn,
		router:      router.New(sess, conn, endpoints),
		log:         logger.GetLogger().WithComponent("client"),
	}, nil
}

func (c *Client) loadCredentials(auth models.AuthResponse) {
	c.session.SetCredentials(session.Credentials{
		AccountID:    auth.AccountID,
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		SessionID:    auth.SessionID,
	})
}

// Login authenticates with the configured client credentials and loads the
// symbol catalogue into the instrument cache.
func (c *Client) Login(ctx context.Context) (models.AuthResponse, error) {
	auth, err := c.api.Login(ctx, c.cfg.Server.ClientID, c.cfg.Server.ClientSecret)
	if err != nil {
		return auth, err
	}
	c.loadCredentials(auth)

	if _, err := c.GetSymbols(ctx); err != nil {
		return auth, fmt.Errorf("load symbols: %w", err)
	}
	c.log.WithFields(logger.Fields{
		"account_id": auth.AccountID,
		"symbols":    c.instruments.Len(),
	}).Info("logged in")
	return auth, nil
}

// RefreshToken replaces the credentials using the stored refresh token.
func (c *Client) RefreshToken(ctx context.Context) (models.AuthResponse, error) {
	creds := c.session.Credentials()
	if creds.RefreshToken == "" {
		return models.AuthResponse{}, ErrNoRefreshToken
	}
	auth, err := c.api.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return auth, err
	}
	c.loadCredentials(auth)
	return auth, nil
}

// Logout ends the server session and forgets the credentials.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.api.Logout(ctx); err != nil {
		return err
	}
	c.session.ClearCredentials()
	c.log.Info("logged out")
	return nil
}

// GetSymbols fetches the catalogue, applies spreads and replaces the cache.
func (c *Client) GetSymbols(ctx context.Context) ([]models.Symbol, error) {
	raw, err := c.api.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	adjusted := spread.AdjustSymbols(raw)
	c.instruments.PutMany(adjusted)
	return adjusted, nil
}

// GetSymbol fetches one symbol by name and refreshes its cache entry.
func (c *Client) GetSymbol(ctx context.Context, name string) (models.Symbol, error) {
	raw, err := c.api.Symbol(ctx, name)
	if err != nil {
		return models.Symbol{}, err
	}
	adjusted := spread.AdjustSymbol(raw)
	c.instruments.Put(adjusted)
	return adjusted, nil
}

// Symbol returns a cached instrument definition.
func (c *Client) Symbol(id int64) (models.Symbol, bool) {
	return c.instruments.Get(id)
}

// Symbols returns every cached definition ordered by id.
func (c *Client) Symbols() []models.Symbol {
	return c.instruments.All()
}

// GetMarketHistory returns bars with the cached instrument spread applied.
func (c *Client) GetMarketHistory(ctx context.Context, req HistoryRequest) ([]models.HistoryTick, error) {
	if req.Side == "" {
		req.Side = models.MarketBid
	}
	side, err := models.ParseMarketType(string(req.Side))
	if err != nil {
		return nil, fmt.Errorf("market history: %w", err)
	}
	req.Side = side

	bars, err := c.api.MarketHistory(ctx, req)
	if err != nil {
		return nil, err
	}
	return spread.AdjustBars(bars, c.instruments.Lookup(req.SymbolID), side), nil
}

func (c *Client) GetAccount(ctx context.Context) (models.Account, error) {
	return c.api.Account(ctx)
}

func (c *Client) GetOrders(ctx context.Context) ([]models.Order, error) {
	return c.api.Orders(ctx)
}

func (c *Client) GetOrdersHistory(ctx context.Context) ([]models.Order, error) {
	return c.api.OrdersHistory(ctx)
}

func (c *Client) GetPositions(ctx context.Context) ([]models.Position, error) {
	return c.api.Positions(ctx)
}

func (c *Client) GetPositionsHistory(ctx context.Context) ([]models.Position, error) {
	return c.api.PositionsHistory(ctx)
}

func (c *Client) GetDeals(ctx context.Context) ([]models.Deal, error) {
	return c.api.Deals(ctx)
}

// CreateOrder is routed by the transport strategy, as are the other
// trading commands below.
func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrder) error {
	_, err := c.router.CreateOrder(ctx, req)
	return err
}

func (c *Client) UpdateOrder(ctx context.Context, req models.UpdateOrder) error {
	_, err := c.router.UpdateOrder(ctx, req)
	return err
}

func (c *Client) CancelOrder(ctx context.Context, req models.CancelOrder) error {
	_, err := c.router.CancelOrder(ctx, req)
	return err
}

func (c *Client) UpdatePosition(ctx context.Context, req models.UpdatePosition) error {
	_, err := c.router.UpdatePosition(ctx, req)
	return err
}

func (c *Client) ClosePosition(ctx context.Context, req models.ClosePosition) error {
	_, err := c.router.ClosePosition(ctx, req)
	return err
}

// Start opens the stream and blocks until it ends. See stream.Conn.Start.
func (c *Client) Start(ctx context.Context) error {
	return c.stream.Start(ctx)
}

func (c *Client) Stop() error {
	return c.stream.Stop()
}

func (c *Client) StartMarketFeed() error {
	return c.stream.StartMarketFeed()
}

func (c *Client) StopMarketFeed() error {
	return c.stream.StopMarketFeed()
}

func (c *Client) Connected() bool {
	return c.session.Connected()
}

func (c *Client) Strategy() session.Strategy {
	return c.session.Strategy()
}

// SetStrategy takes effect on the next trading command.
func (c *Client) SetStrategy(s session.Strategy) {
	c.session.SetStrategy(s)
}

// StreamStats returns the frame counters of the current or last connection.
func (c *Client) StreamStats() stream.Stats {
	return c.stream.Stats()
}

// ReportFields feeds the periodic metrics report.
func (c *Client) ReportFields() logger.Fields {
	fields := c.stream.ReportFields()
	fields["symbols_cached"] = c.instruments.Len()
	fields["strategy"] = c.session.Strategy().String()
	return fields
}

// Register binds a handler by kind name. See dispatch.Dispatcher.Register.
func (c *Client) Register(kind string, handler interface{}) error {
	return c.dispatcher.Register(kind, handler)
}

func (c *Client) OnConnect(h func())                                { c.dispatcher.OnConnect(h) }
func (c *Client) OnDisconnect(h func())                             { c.dispatcher.OnDisconnect(h) }
func (c *Client) OnMarket(h func(models.Tick))                      { c.dispatcher.OnMarket(h) }
func (c *Client) OnSummary(h func(models.Summary))                  { c.dispatcher.OnSummary(h) }
func (c *Client) OnPositionPL(h func(models.PositionPL))            { c.dispatcher.OnPositionPL(h) }
func (c *Client) OnError(h func(models.ErrorEvent))                 { c.dispatcher.OnError(h) }
func (c *Client) OnOrder(h func(models.Order, models.Status))       { c.dispatcher.OnOrder(h) }
func (c *Client) OnPosition(h func(models.Position, models.Status)) { c.dispatcher.OnPosition(h) }
func (c *Client) OnDeal(h func(models.Deal, models.Status))         { c.dispatcher.OnDeal(h) }
