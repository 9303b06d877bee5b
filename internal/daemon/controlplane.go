package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/syncany/syncany-go/internal/utils"
)

type ControlPlaneServer struct {
	token  string
	server *http.Server
}

func NewControlPlaneServer(addr string, token string, handler http.Handler) *ControlPlaneServer {
	return &ControlPlaneServer{
		token: token,
		server: &http.Server{
			Addr:    addr,
			Handler: handler,
			// no read/write timeouts, they would cut the event sockets
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}
}

// Serve serves on l until Stop is called.
func (s *ControlPlaneServer) Serve(l net.Listener) error {
	url, err := utils.AddrToURL(l.Addr().String())
	if err != nil {
		url = l.Addr().String()
	}
	slog.Info("control plane start", "url", url, "token", utils.MaskSecret(s.token))

	if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve control plane: %w", err)
	}
	return nil
}

func (s *ControlPlaneServer) Stop(ctx context.Context) error {
	slog.Info("control plane stop")
	return s.server.Shutdown(ctx)
}
