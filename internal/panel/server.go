package panel

import (
	"context"
	"errors"
	"net"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"codementor/internal/logging"
)

// Server is the HTTP listener for the panel bridge.
type Server struct {
	httpServer *http.Server
	log        *logging.Logger
}

func NewServer(addr string, handler http.Handler, logger *logging.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:     addr,
			Handler:  h2c.NewHandler(handler, &http2.Server{}),
			ErrorLog: logger.Std(),
		},
		log: logger,
	}
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("Panel bridge listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
