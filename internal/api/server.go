// Package api exposes the cognitive memory engine over HTTP: POST
// /api/v1/memories (save) and GET /api/v1/memories/search (search), plus a
// conflicts listing backed by internal/relationships. Gin router, CORS via
// gin-contrib/cors, and a shared response envelope, narrowed to the two
// orchestrator operations this engine actually exposes.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/synapsedb/mnemosyne/internal/engine"
	"github.com/synapsedb/mnemosyne/internal/logging"
	"github.com/synapsedb/mnemosyne/internal/ratelimit"
	"github.com/synapsedb/mnemosyne/internal/relationships"
	"github.com/synapsedb/mnemosyne/pkg/config"
)

// Server is the REST surface over one Engine plus its conflict graph.
type Server struct {
	router     *gin.Engine
	engine     *engine.Engine
	rel        *relationships.Service
	cfg        *config.Config
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer builds a Server over eng and rel, wiring CORS and rate
// limiting from cfg.
func NewServer(eng *engine.Engine, rel *relationships.Service, cfg *config.Config) *Server {
	log := logging.GetLogger("api")

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.RestAPI.CORS {
		router.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
			MaxAge:          12 * time.Hour,
		}))
	}

	if cfg.RateLimit.Enabled {
		rlCfg := &ratelimit.Config{
			Enabled: true,
			Global: ratelimit.LimitConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				BurstSize:         cfg.RateLimit.BurstSize,
			},
		}
		router.Use(RateLimitMiddleware(ratelimit.NewLimiter(rlCfg)))
	}

	s := &Server{router: router, engine: eng, rel: rel, cfg: cfg, log: log}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.POST("/memories", s.createMemory)
		v1.GET("/memories/search", s.searchMemories)
		v1.GET("/conflicts", s.listConflicts)
		v1.GET("/memories/:id/conflicts", s.conflictsForMemory)
		v1.GET("/memories/:id/graph", s.conflictGraph)
	}
}

// Router exposes the underlying gin.Engine for tests.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) health(c *gin.Context) {
	SuccessResponse(c, "ok", gin.H{"status": "ok"})
}

// StartWithContext runs the HTTP server until ctx is cancelled, then shuts
// it down gracefully within shutdownTimeout, mirroring the reference
// codebase's serve-then-drain pattern.
func (s *Server) StartWithContext(ctx context.Context, shutdownTimeout time.Duration) error {
	port := s.cfg.RestAPI.Port
	if s.cfg.RestAPI.AutoPort {
		p, err := findAvailablePort(port)
		if err != nil {
			return fmt.Errorf("failed to find available port: %w", err)
		}
		port = p
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.RestAPI.Host, port)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting REST API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.log.Info("stopping REST API server")
	return s.httpServer.Shutdown(ctx)
}

func findAvailablePort(start int) (int, error) {
	for port := start; port < start+100; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			ln.Close()
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available port found in range %d-%d", start, start+100)
}
