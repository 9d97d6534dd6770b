package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hstrader/config"
	"hstrader/internal/metrics"
	"hstrader/logger"
	"hstrader/models"
)

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                          "127.0.0.1:8090",
		"  :9090  ":                 "127.0.0.1:9090",
		"localhost":                 "localhost:8090",
		"0.0.0.0:80":                "0.0.0.0:80",
		"[::1]:443":                 "[::1]:443",
		"::1":                       "[::1]:8090",
		"*:8080":                    "127.0.0.1:8080",
		"http://10.0.0.5:8080":      "10.0.0.5:8080",
		"http://:7070":              "127.0.0.1:7070",
		"tcp://localhost:5050":      "localhost:5050",
		"https://monitor.internal/": "monitor.internal:8090",
	}

	for input, want := range cases {
		assert.Equal(t, want, normalizeAddress(input), "input %q", input)
	}
}

func TestNewServerDisabled(t *testing.T) {
	srv := NewServer(config.DashboardConfig{}, logger.Logger(), Sources{})
	assert.Nil(t, srv)
	assert.Equal(t, "", srv.Address())
	srv.RecordTick(models.Tick{SymbolID: 1})
	assert.NoError(t, srv.Run(context.Background()))
}

func newTestServer(t *testing.T, sources Sources) (*Server, http.Handler) {
	t.Helper()
	srv := NewServer(config.DashboardConfig{Enabled: true, Address: ":9000"}, logger.Logger(), sources)
	require.NotNil(t, srv)
	t.Cleanup(srv.cleanup)
	assert.Equal(t, "127.0.0.1:9000", srv.Address())

	router, err := srv.buildRouter()
	require.NoError(t, err)
	return srv, router
}

func getJSON(t *testing.T, h http.Handler, path string, want int) map[string]interface{} {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, want, rec.Code, rec.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStatusMergesSource(t *testing.T) {
	_, router := newTestServer(t, Sources{
		Status: func() logger.Fields { return logger.Fields{"connected": true, "symbols_cached": 3} },
	})

	body := getJSON(t, router, "/api/status", http.StatusOK)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, float64(3), body["symbols_cached"])
	assert.Equal(t, float64(5000), body["refresh_interval_ms"])
}

func TestMetricsEndpointFilters(t *testing.T) {
	_, router := newTestServer(t, Sources{})

	metrics.EmitMetric(logger.Logger(), "stream", "frames_received", 4, "counter", nil)
	metrics.EmitMetric(logger.Logger(), "rest", "requests", 1, "counter", logger.Fields{"path": "/v1/symbols"})

	body := getJSON(t, router, "/api/metrics?component=rest", http.StatusOK)
	list := body["metrics"].([]interface{})
	require.Len(t, list, 1)
	assert.Equal(t, "requests", list[0].(map[string]interface{})["name"])
}

func TestLogsEndpointLevelFilter(t *testing.T) {
	srv, router := newTestServer(t, Sources{})
	srv.log.WithComponent("test").Info("quiet")
	srv.log.WithComponent("test").Warn("loud")

	body := getJSON(t, router, "/api/logs?level=warning", http.StatusOK)
	for _, raw := range body["logs"].([]interface{}) {
		assert.NotEqual(t, "info", raw.(map[string]interface{})["level"])
	}

	getJSON(t, router, "/api/logs?level=chatty", http.StatusBadRequest)
}

func TestQuotesAndAccountEndpoints(t *testing.T) {
	srv, router := newTestServer(t, Sources{})
	srv.RecordTick(models.Tick{SymbolID: 5, Bid: 1.1, Ask: 1.2, Time: time.Unix(1, 0)})
	srv.RecordSummary(models.Summary{Balance: 10, Equity: 12})
	srv.RecordPositionPL(models.PositionPL{PositionID: 9, Profit: 2})

	quotes := getJSON(t, router, "/api/quotes", http.StatusOK)["quotes"].([]interface{})
	require.Len(t, quotes, 1)
	assert.Equal(t, 1.2, quotes[0].(map[string]interface{})["ask"])

	account := getJSON(t, router, "/api/account", http.StatusOK)
	assert.Equal(t, float64(12), account["summary"].(map[string]interface{})["equity"])
	assert.Equal(t, float64(2), account["positions_pl"].(map[string]interface{})["9"])
}

func TestSymbolEndpoints(t *testing.T) {
	_, router := newTestServer(t, Sources{
		Symbols: func() []models.Symbol { return []models.Symbol{{ID: 1, Symbol: "EURUSD"}} },
	})

	list := getJSON(t, router, "/api/symbols", http.StatusOK)["symbols"].([]interface{})
	assert.Len(t, list, 1)

	one := getJSON(t, router, "/api/symbols/1", http.StatusOK)
	assert.Equal(t, "EURUSD", one["symbol"])

	getJSON(t, router, "/api/symbols/2", http.StatusNotFound)
	getJSON(t, router, "/api/symbols/abc", http.StatusBadRequest)
}

func TestLevelRank(t *testing.T) {
	assert.Less(t, levelRank("debug"), levelRank("info"))
	assert.Equal(t, levelRank("warn"), levelRank("warning"))
	assert.Equal(t, -1, levelRank("verbose"))
}
