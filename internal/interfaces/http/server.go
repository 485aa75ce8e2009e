package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
)

// Server wraps the HTTP listener around an assembled router.
type Server struct {
	srv *http.Server
	cfg config.ServerConfig
	log logging.Logger
}

// NewServer builds the listener. gin's global mode follows cfg.Mode, so
// call this once per process.
func NewServer(cfg config.ServerConfig, handler *gin.Engine, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNopLogger()
	}
	gin.SetMode(ginMode(cfg.Mode))

	return &Server{
		cfg: cfg,
		log: log.Named("http_server"),
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}
}

func ginMode(mode string) string {
	switch mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}

// Start blocks serving requests until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.log.Info("http server listening", logging.Int("port", s.cfg.Port))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests within the configured shutdown window.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.log.Info("http server shutting down")
	return s.srv.Shutdown(shutdownCtx)
}

