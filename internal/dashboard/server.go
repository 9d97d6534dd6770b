package dashboard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"hstrader/config"
	"hstrader/internal/metrics"
	"hstrader/logger"
	"hstrader/models"
)

const defaultAddress = "127.0.0.1:8090"

// Sources supplies live client state to the monitor. Either func may be nil.
type Sources struct {
	Status  func() logger.Fields
	Symbols func() []models.Symbol
}

// Server is a local JSON monitor for a running client: recent metrics and
// logs, host resources, latest quotes and account state.
type Server struct {
	cfg     config.DashboardConfig
	log     *logger.Log
	sources Sources

	metricStore     *metricStore
	logStore        *logStore
	quotes          *quoteStore
	metricHandler   metrics.MetricHandlerID
	resourceSampler *resourceSampler
	httpServer      *http.Server
	started         time.Time
}

// NewServer returns nil when the monitor is disabled. All methods are safe
// on a nil server.
func NewServer(cfg config.DashboardConfig, log *logger.Log, sources Sources) *Server {
	if !cfg.Enabled {
		return nil
	}

	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 5 * time.Second
	}
	if cfg.LogHistory <= 0 {
		cfg.LogHistory = 200
	}
	if cfg.MetricsHistory <= 0 {
		cfg.MetricsHistory = 200
	}

	s := &Server{
		cfg:             cfg,
		log:             log,
		sources:         sources,
		metricStore:     newMetricStore(cfg.MetricsHistory),
		logStore:        newLogStore(cfg.LogHistory),
		quotes:          newQuoteStore(),
		resourceSampler: newResourceSampler(cfg.MetricsHistory, cfg.RefreshInterval, log),
	}
	s.metricHandler = metrics.RegisterMetricHandler(s.metricStore.handle)
	log.AddHook(s.logStore)
	return s
}

// RecordTick stores the latest quote for its symbol.
func (s *Server) RecordTick(t models.Tick) {
	if s == nil {
		return
	}
	s.quotes.tick(t)
}

// RecordSummary stores the latest account summary.
func (s *Server) RecordSummary(sum models.Summary) {
	if s == nil {
		return
	}
	s.quotes.setSummary(sum)
}

// RecordPositionPL stores the latest floating profit of a position.
func (s *Server) RecordPositionPL(pl models.PositionPL) {
	if s == nil {
		return
	}
	s.quotes.positionPL(pl)
}

// Run serves until ctx is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if s == nil {
		return nil
	}
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	s.started = time.Now()
	s.resourceSampler.start(ctx)
	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.WithComponent("dashboard").WithField("address", s.cfg.Address).Info("monitor listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	s.logStore.close()
	s.resourceSampler.stop()
}

// Address reports the listen address after normalisation.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/metrics", s.handleMetrics)
	api.GET("/logs", s.handleLogs)
	api.GET("/resources", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"resources": s.resourceSampler.snapshot()})
	})
	api.GET("/quotes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"quotes": s.quotes.quotesSnapshot()})
	})
	api.GET("/account", func(c *gin.Context) {
		summary, pl := s.quotes.accountSnapshot()
		c.JSON(http.StatusOK, gin.H{"summary": summary, "positions_pl": pl})
	})
	api.GET("/symbols", s.handleSymbols)
	api.GET("/symbols/:id", s.handleSymbol)

	return router, nil
}

func (s *Server) handleStatus(c *gin.Context) {
	status := gin.H{
		"refresh_interval_ms": s.cfg.RefreshInterval.Milliseconds(),
	}
	if !s.started.IsZero() {
		status["uptime_seconds"] = int64(time.Since(s.started).Seconds())
	}
	if s.sources.Status != nil {
		for k, v := range s.sources.Status() {
			status[k] = v
		}
	}
	c.JSON(http.StatusOK, status)
}

// handleMetrics accepts optional component and name filters.
func (s *Server) handleMetrics(c *gin.Context) {
	component := c.Query("component")
	name := c.Query("name")

	snapshot := s.metricStore.snapshot()
	payload := make([]gin.H, 0, len(snapshot))
	for _, m := range snapshot {
		if component != "" && m.Component != component {
			continue
		}
		if name != "" && m.Name != name {
			continue
		}
		payload = append(payload, gin.H{
			"timestamp": m.Timestamp.Format(time.RFC3339Nano),
			"component": m.Component,
			"name":      m.Name,
			"value":     m.Value,
			"type":      m.Type,
			"fields":    m.Fields,
		})
	}
	c.JSON(http.StatusOK, gin.H{"metrics": payload})
}

// handleLogs accepts an optional minimum level, e.g. ?level=warning.
func (s *Server) handleLogs(c *gin.Context) {
	minLevel := c.Query("level")
	var threshold int
	if minLevel != "" {
		threshold = levelRank(minLevel)
		if threshold < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown level " + strconv.Quote(minLevel)})
			return
		}
	}

	snapshot := s.logStore.snapshot()
	payload := make([]logRecord, 0, len(snapshot))
	for _, l := range snapshot {
		if minLevel != "" && levelRank(l.Level) < threshold {
			continue
		}
		payload = append(payload, l)
	}
	c.JSON(http.StatusOK, gin.H{"logs": payload})
}

func (s *Server) handleSymbols(c *gin.Context) {
	if s.sources.Symbols == nil {
		c.JSON(http.StatusOK, gin.H{"symbols": []models.Symbol{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": s.sources.Symbols()})
}

func (s *Server) handleSymbol(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol id must be an integer"})
		return
	}
	if s.sources.Symbols != nil {
		for _, sym := range s.sources.Symbols() {
			if sym.ID == id {
				c.JSON(http.StatusOK, sym)
				return
			}
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "symbol not cached"})
}

// levelRank orders logrus level names from least to most severe; -1 for
// unknown names.
func levelRank(level string) int {
	switch strings.ToLower(level) {
	case "trace":
		return 0
	case "debug":
		return 1
	case "info":
		return 2
	case "warn", "warning":
		return 3
	case "error":
		return 4
	case "fatal":
		return 5
	case "panic":
		return 6
	}
	return -1
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return defaultAddress
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil && parsed.Host != "" {
			addr = parsed.Host
		}
	}

	_, defaultPort, _ := net.SplitHostPort(defaultAddress)
	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "127.0.0.1"
		}
		if port == "" {
			port = defaultPort
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil || !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}
