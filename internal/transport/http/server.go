// Package statushttp exposes a minimal read-only HTTP surface over the live
// trader: health, portfolio status and the open-order set.
package statushttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devon-brazier/rebalancer.v2/internal/logger"
	"github.com/devon-brazier/rebalancer.v2/internal/trader"
)

// StatusSource is what the server reads; the live trader satisfies it.
type StatusSource interface {
	Status() trader.Status
}

type Server struct {
	addr   string
	router *gin.Engine
}

func NewServer(addr string, source StatusSource) (*Server, error) {
	if source == nil {
		return nil, errors.New("status http server requires a status source")
	}
	if addr == "" {
		addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, source.Status())
	})
	router.GET("/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"orders": source.Status().OpenOrders})
	})

	return &Server{addr: addr, router: router}, nil
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("status http listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		logger.Debugf("http %s %s -> %d in %s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(started))
	}
}
