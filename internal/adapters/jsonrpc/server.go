package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/livingrockrises/snap-account-abstraction-keyring/internal/domain/config"
)

// Server serves the keyring API over HTTP and WebSocket on one address
type Server struct {
	rpc  *rpc.Server
	addr string
	log  *slog.Logger
}

// NewServer registers api under the keyring namespace
func NewServer(api *KeyringAPI, cfg *config.RuntimeConfig, log *slog.Logger) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName(Namespace, api); err != nil {
		return nil, fmt.Errorf("failed to register %s API: %w", Namespace, err)
	}
	return &Server{rpc: server, addr: cfg.ListenAddr, log: log}, nil
}

// Handler routes WebSocket upgrades to the subscription-capable handler
// and everything else to plain HTTP JSON-RPC
func (s *Server) Handler() http.Handler {
	ws := s.rpc.WebsocketHandler([]string{"*"})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") == "websocket" {
			ws.ServeHTTP(w, r)
			return
		}
		s.rpc.ServeHTTP(w, r)
	})
}

// Serve listens until ctx is cancelled
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, listener)
}

func (s *Server) serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()
	s.log.Info("keyring RPC listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		s.rpc.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	s.rpc.Stop()
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return err
}

// InProc returns a client attached directly to the server
func (s *Server) InProc() *rpc.Client {
	return rpc.DialInProc(s.rpc)
}
