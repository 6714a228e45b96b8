// Package httpserver exposes the MCP server over HTTP. Each POST to /mcp
// carries exactly one JSON-RPC message; sessions are stateless, so clients
// do not perform the initialize handshake. Liveness routes at / and /health
// serve container platform probes.
// file: internal/httpserver/server.go
package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/config"
	"github.com/dkoosis/promptclinic/internal/httputils"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/mcp"
	"github.com/dkoosis/promptclinic/internal/mcperror"
)

// maxRequestBodyBytes caps a single JSON-RPC request body.
const maxRequestBodyBytes = 4 << 20

// healthResponse is the fixed /health payload.
type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// rootResponse is the fixed / payload, advertising the MCP endpoint.
type rootResponse struct {
	OK          bool   `json:"ok"`
	Service     string `json:"service"`
	MCPEndpoint string `json:"mcp_endpoint"`
	Health      string `json:"health"`
}

// Server serves the MCP protocol over HTTP.
type Server struct {
	mcpServer  *mcp.Server
	httpServer *http.Server
	logger     logging.Logger
}

// NewServer creates an HTTP server routing /mcp to the given MCP server.
// The MCP server should be created with the Stateless option so tool calls
// work without an initialize handshake.
func NewServer(mcpServer *mcp.Server, addr string, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	s := &Server{
		mcpServer: mcpServer,
		logger:    logger.WithField("component", "http_server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/mcp", s.handleMCP)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the underlying HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run initializes the MCP server, starts listening, and blocks until the
// context is cancelled or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Initialize(ctx); err != nil {
		return errors.Wrap(err, "failed to initialize MCP server")
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", "address", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok || err == nil {
			return nil
		}
		return errors.Wrap(err, "HTTP server failed")
	}
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server.")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown failed")
	}
	return nil
}

// handleRoot serves the service banner at exactly "/".
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	httputils.WriteJSONResponse(w, s.logger, rootResponse{
		OK:          true,
		Service:     config.ServiceID,
		MCPEndpoint: "/mcp",
		Health:      "/health",
	})
}

// handleHealth serves the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	httputils.WriteJSONResponse(w, s.logger, healthResponse{
		Status:  "ok",
		Service: config.ServiceID,
	})
}

// handleMCP accepts one JSON-RPC message per POST and writes the response
// body verbatim. JSON-RPC level errors ride a 200 status; only transport
// level failures map to HTTP error codes.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err != nil {
		s.logger.Warn("Failed to read request body.", "error", err)
		httputils.WriteErrorResponse(w, s.logger, mcperror.CodeParseError, "Failed to read request body.", nil)
		return
	}
	if len(body) == 0 {
		httputils.WriteErrorResponse(w, s.logger, mcperror.CodeParseError, "Request body is empty.", nil)
		return
	}

	response, err := s.mcpServer.HandleMessage(r.Context(), body)
	if err != nil {
		s.logger.Error("Failed to handle message.", "error", err)
		httputils.WriteErrorResponse(w, s.logger, mcperror.CodeInternalError, "Internal server error.", nil)
		return
	}
	if response == nil {
		// Notification: acknowledged, nothing to return.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(response); err != nil {
		s.logger.Error("Failed to write response body.", "error", err)
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
