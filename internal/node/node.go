package node

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

// Node is an HTTP service built on a gin router.
type Node interface {
	NodeID() string
	Kind() string
	HTTPRouter() *gin.Engine
}

// Serve runs n on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, n Node, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           n.HTTPRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("node", n.NodeID()).Str("kind", n.Kind()).Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Str("node", n.NodeID()).Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// NormalizeOrigins returns the CORS allow-list, falling back to the local
// development host.
func NormalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"https://github.localhost"}
	}
	return origins
}
