package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
)

const pingTimeout = 10 * time.Second

// StatusResponse reports the supervised connection
type StatusResponse struct {
	Connected  bool            `json:"connected"`
	Reconnects int             `json:"reconnects"`
	LastError  string          `json:"last_error,omitempty"`
	Client     *network.Status `json:"client,omitempty"`
	CheckedAt  time.Time       `json:"checked_at"`
}

// KeysResponse lists the fingerprints of the trusted server keys
type KeysResponse struct {
	Count        int      `json:"count"`
	Fingerprints []string `json:"fingerprints"`
}

// PingResponse carries the round trip of a ping through the session
type PingResponse struct {
	RTTMillis float64 `json:"rtt_ms"`
}

// PrimesResponse reports the DH prime cache
type PrimesResponse struct {
	prime.Stats
	Bits int `json:"bits"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"connected": s.monitor.Current() != nil,
	})
}

// handleStatus answers 503 while no session is established
func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Reconnects: s.monitor.Reconnects(),
		CheckedAt:  time.Now().UTC(),
	}
	if err := s.monitor.LastError(); err != nil {
		resp.LastError = err.Error()
	}

	client := s.monitor.Current()
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	st := client.Status()
	resp.Client = &st
	resp.Connected = st.Connected
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePing(c *gin.Context) {
	client := s.monitor.Current()
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: network.ErrNotConnected.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	rtt, err := client.Ping(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Ping failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Ping failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, PingResponse{RTTMillis: float64(rtt.Microseconds()) / 1000})
}

func (s *Server) handleKeys(c *gin.Context) {
	fps := s.keys.Fingerprints()
	resp := KeysResponse{Count: len(fps), Fingerprints: make([]string, len(fps))}
	for i, fp := range fps {
		resp.Fingerprints[i] = fmt.Sprintf("%016x", fp)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePrimes(c *gin.Context) {
	c.JSON(http.StatusOK, PrimesResponse{Stats: s.primes.Stats(), Bits: prime.PrimeBits})
}
