// pkg/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/busybox42/beacon/pkg/metrics"
	"github.com/busybox42/beacon/pkg/network"
	"github.com/busybox42/beacon/pkg/protocol"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/netutil"
)

const maxCommandBody = 64 * 1024

// State is the node knowledge the server exposes to peers.
type State interface {
	Genesis() (string, bool)
	Peers() []string
}

// CommandHandler receives commands whose signature has already been
// verified.
type CommandHandler interface {
	HandleCommand(ctx context.Context, cmd *protocol.SignedCommand) error
}

type CommandHandlerFunc func(ctx context.Context, cmd *protocol.SignedCommand) error

func (f CommandHandlerFunc) HandleCommand(ctx context.Context, cmd *protocol.SignedCommand) error {
	return f(ctx, cmd)
}

type remoteHostKey struct{}

// WithRemoteHost attaches the transport-level source address of a request.
func WithRemoteHost(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, remoteHostKey{}, host)
}

// RemoteHost returns the host a command was received from. The envelope's ip
// field is not covered by the signature, so handlers should trust this
// address instead.
func RemoteHost(ctx context.Context) (string, bool) {
	host, ok := ctx.Value(remoteHostKey{}).(string)
	return host, ok && host != ""
}

type Config struct {
	Port           int
	MaxConnections int
}

// Server answers liveness probes and genesis lookups, and accepts signed
// commands from peers.
type Server struct {
	config   Config
	state    State
	verifier protocol.Verifier
	handler  CommandHandler
	metrics  *metrics.Metrics
	log      *logrus.Logger

	httpServer *http.Server
	listener   net.Listener
}

func New(config Config, state State, verifier protocol.Verifier, handler CommandHandler, m *metrics.Metrics, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	srv := &Server{
		config:   config,
		state:    state,
		verifier: verifier,
		handler:  handler,
		metrics:  m,
		log:      log,
	}
	srv.httpServer = &http.Server{
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(network.AlivePath, s.handleAlive).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc(network.GenesisPath, s.handleGenesis).Methods(http.MethodGet)
	r.HandleFunc(network.NodeListPath, s.handleNodeList).Methods(http.MethodGet)
	r.HandleFunc(network.CommandPath, s.handleCommand).Methods(http.MethodPost)
	r.Handle(network.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	r.Use(s.logRequests)
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.config.Port, err)
	}
	if s.config.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.config.MaxConnections)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Errorf("Server error: %v", err)
		}
	}()

	s.log.Infof("Node listening on %s", listener.Addr())
	return nil
}

func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleAlive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "alive")
}

func (s *Server) handleGenesis(w http.ResponseWriter, r *http.Request) {
	genesis, ok := s.state.Genesis()
	if !ok {
		http.Error(w, "genesis unknown", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, genesis)
}

func (s *Server) handleNodeList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, strings.Join(s.state.Peers(), "\n"))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBody+1))
	if err != nil || len(body) > maxCommandBody {
		s.metrics.ObserveCommand(metrics.ResultMalformed)
		http.Error(w, "request body too large or unreadable", http.StatusBadRequest)
		return
	}

	cmd, err := protocol.DecodeSignedCommand(body)
	if err != nil {
		s.metrics.ObserveCommand(metrics.ResultMalformed)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry := s.log.WithFields(logrus.Fields{
		"sender": cmd.IP,
		"remote": r.RemoteAddr,
	})

	if !cmd.VerifyWith(s.verifier) {
		s.metrics.ObserveCommand(metrics.ResultRejected)
		entry.Warn("Rejected command with invalid signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if err := s.handler.HandleCommand(WithRemoteHost(r.Context(), host), cmd); err != nil {
		s.metrics.ObserveCommand(metrics.ResultFailed)
		entry.WithError(err).Error("Command handler failed")
		http.Error(w, "command handling failed", http.StatusInternalServerError)
		return
	}

	s.metrics.ObserveCommand(metrics.ResultAccepted)
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "accepted")
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
			"took":   time.Since(start),
		}).Debug("Handled request")
	})
}
