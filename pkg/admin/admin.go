// Package admin implements the read-only JSON admin API: pool
// snapshot, health/readiness/liveness probes, and Prometheus
// metrics exposition. It deliberately runs on a separate port and
// gin.Engine from the data-port hot path in pkg/frontdoor, so a slow
// or misbehaving admin client can never backpressure request dispatch.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuemby/edgerunner/pkg/log"
	"github.com/cuemby/edgerunner/pkg/metrics"
	"github.com/cuemby/edgerunner/pkg/pool"
)

// Snapshotter is the narrow capability the admin API depends on: a
// point-in-time read of the pool, the same Snapshot call the pool
// controller already serializes through its inbox.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]pool.WorkerInfo, error)
}

// Server is the admin-port HTTP server.
type Server struct {
	addr   string
	engine *gin.Engine
	srv    *http.Server
}

// New builds the admin server bound to addr, backed by snapshotter for
// the /workers endpoint.
func New(addr string, snapshotter Snapshotter) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{addr: addr, engine: engine}

	engine.GET("/health", gin.WrapF(metrics.HealthHandler()))
	engine.GET("/ready", gin.WrapF(metrics.ReadyHandler()))
	engine.GET("/live", gin.WrapF(metrics.LivenessHandler()))
	engine.GET("/workers", workersHandler(snapshotter))
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	return s
}

// Serve starts the admin HTTP server and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	s.srv = &http.Server{Addr: s.addr, Handler: s.engine}

	serveErr := make(chan error, 1)
	go func() {
		log.WithComponent("admin").Info().Str("addr", s.addr).Msg("admin server listening")
		serveErr <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

// workerView is the admin API's JSON projection of a pool.WorkerInfo,
// rendering the key as its stable hex string rather than a bare
// uint64.
type workerView struct {
	Key          string    `json:"key"`
	CreatedAt    time.Time `json:"created_at"`
	LastDispatch time.Time `json:"last_dispatch"`
	Healthy      bool      `json:"healthy"`
}

func workersHandler(snapshotter Snapshotter) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos, err := snapshotter.Snapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		views := make([]workerView, 0, len(infos))
		for _, info := range infos {
			views = append(views, workerView{
				Key:          info.Key.String(),
				CreatedAt:    info.CreatedAt,
				LastDispatch: info.LastDispatch,
				Healthy:      info.Healthy,
			})
		}
		c.JSON(http.StatusOK, gin.H{"workers": views, "count": len(views)})
	}
}
