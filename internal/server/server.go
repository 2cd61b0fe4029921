// Package server exposes the connection service over HTTP for browser and
// script clients: connect, disconnect and switch chain, the current state,
// and a websocket feed of state changes.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mrz1836/tether/internal/config"
	"github.com/mrz1836/tether/internal/connection"
	"github.com/mrz1836/tether/internal/metrics"
	"github.com/mrz1836/tether/internal/output"
	tethererr "github.com/mrz1836/tether/pkg/errors"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var ginModeOnce sync.Once

var errRateLimited = &tethererr.TetherError{
	Code:     "RATE_LIMITED",
	Message:  "too many requests",
	ExitCode: tethererr.ExitGeneral,
}

// Options configures a Server.
type Options struct {
	Listen    string
	RateLimit float64
	RateBurst int
	Logger    *config.Logger
	Metrics   *metrics.Metrics
	// CheckOrigin decides which browser origins may open /v1/events.
	// Nil allows same-origin and non-browser clients only.
	CheckOrigin func(r *http.Request) bool
}

// Server routes HTTP requests to a connection service.
type Server struct {
	svc      *connection.Service
	opts     Options
	log      *config.Logger
	metrics  *metrics.Metrics
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

// New builds the router for svc.
func New(svc *connection.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = config.NullLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Global
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}

	s := &Server{
		svc:     svc,
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
		limiter: NewRateLimiter(opts.RateLimit, opts.RateBurst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	ginModeOnce.Do(func() { gin.SetMode(gin.ReleaseMode) })
	r := gin.New()
	r.Use(gin.CustomRecovery(s.recovered), s.logRequests())

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/v1", rateLimit(s.limiter, s.metrics))
	{
		v1.POST("/connect", s.connect)
		v1.POST("/disconnect", s.disconnect)
		v1.POST("/switch-chain", s.switchChain)
		v1.GET("/state", s.state)
		v1.GET("/chains", s.chains)
		v1.GET("/events", s.events)
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve handles requests on ln until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("control server listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Listen)
	if err != nil {
		return tethererr.Wrap(err, "listening on %s", s.opts.Listen)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) recovered(c *gin.Context, v any) {
	s.log.Error("panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, v)
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(tethererr.ErrGeneral))
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s %d %s %s", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start).Round(time.Microsecond), c.ClientIP())
	}
}

// errorBody is the JSON form of err, matching the CLI's machine output.
func errorBody(err error) output.ErrorOutput {
	return output.ErrorOutput{Error: output.Describe(err)}
}
