package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
	"github.com/ZentaChain/zentalk-mtproto/pkg/logging"
	"github.com/ZentaChain/zentalk-mtproto/pkg/mtprototest"
	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
	"github.com/ZentaChain/zentalk-mtproto/pkg/transport"
)

type fakeMonitor struct {
	client     *network.Client
	reconnects int
	err        error
}

func (m *fakeMonitor) Current() *network.Client { return m.client }
func (m *fakeMonitor) Reconnects() int          { return m.reconnects }
func (m *fakeMonitor) LastError() error         { return m.err }

func newServer(t *testing.T, m Monitor, cfg config.APIConfig) (*Server, *mtprototest.Server) {
	t.Helper()
	srv := mtprototest.NewServer()
	s, err := NewServer(Deps{Monitor: m, Keys: srv.Keys(), Primes: prime.NewCache(), Log: logging.Discard()}, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Stop() })
	return s, srv
}

func connect(t *testing.T, srv *mtprototest.Server) *network.Client {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, b := net.Pipe()
	go srv.Serve(ctx, transport.NewServerConn(b))

	cfg := config.Default()
	cfg.Session.PingInterval = 0
	cfg.Session.AckFlush = 0

	c, err := network.Connect(ctx, transport.NewConn(a), cfg, network.Options{
		Keys:   srv.Keys(),
		Primes: prime.NewCache(),
		Log:    logging.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func get(t *testing.T, s *Server, method, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w
}

func TestNewServerRequiresMonitor(t *testing.T) {
	_, err := NewServer(Deps{}, config.Default().API)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := newServer(t, &fakeMonitor{}, config.Default().API)

	var body map[string]any
	w := get(t, s, http.MethodGet, "/health", &body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["connected"])
}

func TestStatusDisconnected(t *testing.T) {
	m := &fakeMonitor{reconnects: 3, err: errors.New("connection refused")}
	s, _ := newServer(t, m, config.Default().API)

	var resp StatusResponse
	w := get(t, s, http.MethodGet, "/api/v1/status", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Connected)
	assert.Equal(t, 3, resp.Reconnects)
	assert.Equal(t, "connection refused", resp.LastError)
	assert.Nil(t, resp.Client)

	w = get(t, s, http.MethodPost, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusConnected(t *testing.T) {
	m := &fakeMonitor{}
	s, srv := newServer(t, m, config.Default().API)
	m.client = connect(t, srv)

	var resp StatusResponse
	w := get(t, s, http.MethodGet, "/api/v1/status", &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Connected)
	require.NotNil(t, resp.Client)
	assert.Equal(t, m.client.ID.String(), resp.Client.ClientID)
	assert.Equal(t, fmt.Sprintf("%016x", srv.AuthKey().ID()), resp.Client.KeyID)
	assert.Equal(t, 2, resp.Client.DC)

	var ping PingResponse
	w = get(t, s, http.MethodPost, "/api/v1/ping", &ping)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.GreaterOrEqual(t, ping.RTTMillis, 0.0)
}

func TestKeys(t *testing.T) {
	s, srv := newServer(t, &fakeMonitor{}, config.Default().API)

	var resp KeysResponse
	w := get(t, s, http.MethodGet, "/api/v1/keys", &resp)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, []string{fmt.Sprintf("%016x", crypto.FromRSA(&srv.Key.PublicKey).Fingerprint())}, resp.Fingerprints)
}

func TestPrimes(t *testing.T) {
	primes := prime.NewCache()
	s, err := NewServer(Deps{Monitor: &fakeMonitor{}, Primes: primes, Log: logging.Discard()}, config.Default().API)
	require.NoError(t, err)
	defer s.Stop()

	var resp PrimesResponse
	get(t, s, http.MethodGet, "/api/v1/primes", &resp)
	assert.Equal(t, 2048, resp.Bits)
	assert.Equal(t, 1, resp.Good, "seeded with the builtin prime")
	assert.Zero(t, resp.Bad)

	even := new(big.Int).Lsh(big.NewInt(1), 2047)
	require.ErrorIs(t, prime.Validate(context.Background(), primes, even), prime.ErrNotSafePrime)

	get(t, s, http.MethodGet, "/api/v1/primes", &resp)
	assert.Equal(t, 1, resp.Good)
	assert.Equal(t, 1, resp.Bad)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newServer(t, &fakeMonitor{}, config.Default().API)

	w := get(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCORS(t *testing.T) {
	cfg := config.Default().API
	cfg.EnableCORS = true
	s, _ := newServer(t, &fakeMonitor{}, cfg)

	w := get(t, s, http.MethodOptions, "/api/v1/status", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	cfg.EnableCORS = false
	s, _ = newServer(t, &fakeMonitor{}, cfg)
	w = get(t, s, http.MethodGet, "/health", nil)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default().API
	cfg.RateLimit = 2
	s, _ := newServer(t, &fakeMonitor{}, cfg)

	assert.Equal(t, http.StatusOK, get(t, s, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, get(t, s, http.MethodGet, "/health", nil).Code)

	var resp ErrorResponse
	w := get(t, s, http.MethodGet, "/health", &resp)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", resp.Error)
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per ip")

	now = now.Add(time.Minute + time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "window reset")
}
