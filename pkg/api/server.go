// Package api serves the read-only status surface of a running client:
// session state, trusted server keys, prime cache counters and metrics.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/config"
	"github.com/ZentaChain/zentalk-mtproto/pkg/keyring"
	"github.com/ZentaChain/zentalk-mtproto/pkg/network"
	"github.com/ZentaChain/zentalk-mtproto/pkg/prime"
)

// Monitor is the view of a connection the API reports on.
// *network.Supervisor implements it.
type Monitor interface {
	Current() *network.Client
	Reconnects() int
	LastError() error
}

// Server is the HTTP status server
type Server struct {
	router     *gin.Engine
	port       int
	httpServer *http.Server
	limiter    *RateLimiter
	log        logrus.FieldLogger

	monitor Monitor
	keys    *keyring.Registry
	primes  *prime.Cache
}

// Deps are the components the server reports on. Nil Keys and Primes fall
// back to the process defaults.
type Deps struct {
	Monitor Monitor
	Keys    *keyring.Registry
	Primes  *prime.Cache
	Log     logrus.FieldLogger
}

// NewServer creates the status server
func NewServer(deps Deps, cfg config.APIConfig) (*Server, error) {
	if deps.Monitor == nil {
		return nil, errors.New("api: monitor is required")
	}
	if deps.Keys == nil {
		deps.Keys = keyring.Default()
	}
	if deps.Primes == nil {
		deps.Primes = prime.Default()
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:  gin.New(),
		port:    cfg.Port,
		log:     deps.Log.WithField("component", "api"),
		monitor: deps.Monitor,
		keys:    deps.Keys,
		primes:  deps.Primes,
	}
	if cfg.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimit, time.Minute)
	}

	s.setupMiddleware(cfg)
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware(cfg config.APIConfig) {
	s.router.Use(gin.Recovery())
	if cfg.EnableCORS {
		s.router.Use(CORSMiddleware())
	}
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter))
	}
	s.router.Use(LoggingMiddleware(s.log))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.handleStatus)
		v1.POST("/ping", s.handlePing)
		v1.GET("/keys", s.handleKeys)
		v1.GET("/primes", s.handlePrimes)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("port", s.port).Info("Status API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts the server down, waiting up to 5 seconds for open requests
func (s *Server) Stop() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
