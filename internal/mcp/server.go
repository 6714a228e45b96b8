// file: internal/mcp/server.go
package mcp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dkoosis/promptclinic/internal/clinic"
	"github.com/dkoosis/promptclinic/internal/config"
	"github.com/dkoosis/promptclinic/internal/fsm"
	"github.com/dkoosis/promptclinic/internal/logging"
	"github.com/dkoosis/promptclinic/internal/mcperror"
	"github.com/dkoosis/promptclinic/internal/mcptypes"
	"github.com/dkoosis/promptclinic/internal/middleware"
	"github.com/dkoosis/promptclinic/internal/schema"
	"github.com/dkoosis/promptclinic/internal/services"
	"github.com/dkoosis/promptclinic/internal/transport"
)

// ServerOptions contains configurable options for the MCP server.
type ServerOptions struct {
	// RequestTimeout is the maximum duration for processing a single request.
	RequestTimeout time.Duration

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// Debug enables validation timing and extra logging.
	Debug bool

	// Stateless disables the session lifecycle gate. HTTP transports set
	// this: each POST is an independent exchange with no initialize
	// handshake to track.
	Stateless bool
}

// MethodHandler processes a specific MCP method.
type MethodHandler func(ctx context.Context, params json.RawMessage) (json.RawMessage, error)

// Server is an MCP server instance. It owns the schema validator, the
// registered services, the method registry, and the session state machine.
type Server struct {
	config    *config.Config
	options   ServerOptions
	handler   *Handler
	logger    logging.Logger
	validator *schema.Validator
	services  []services.Service
	session   fsm.FSM
	transport transport.Transport
	methods   map[string]MethodHandler

	initOnce    sync.Once
	initErr     error
	handlerOnce sync.Once
	composed    mcptypes.MessageHandler
}

// NewServer creates a new MCP server wired with the prompt clinic service.
func NewServer(cfg *config.Config, opts ServerOptions, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if opts.Debug && !logging.IsDebugEnabled() {
		logging.SetLevel(logging.LevelDebug)
	}

	validator := schema.NewValidator(cfg.Schema, logger)
	clinicService := clinic.NewService(validator, logger)
	svcs := []services.Service{clinicService}

	session, err := newSessionFSM(logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build session state machine")
	}
	if opts.Stateless {
		if err := session.SetState(SessionReady); err != nil {
			return nil, errors.Wrap(err, "failed to mark stateless session ready")
		}
	}

	server := &Server{
		config:    cfg,
		options:   opts,
		handler:   NewHandler(cfg, logger, svcs...),
		logger:    logger.WithField("component", "mcp_server"),
		validator: validator,
		services:  svcs,
		session:   session,
		methods:   make(map[string]MethodHandler),
	}
	server.registerMethods()

	return server, nil
}

// registerMethods registers all supported MCP methods.
func (s *Server) registerMethods() {
	s.methods["initialize"] = s.handler.handleInitialize
	s.methods["ping"] = s.handler.handlePing
	s.methods["tools/list"] = s.handler.handleToolsList
	s.methods["tools/call"] = s.handler.handleToolCall
}

// Initialize compiles the schema and initializes the registered services.
// It is idempotent and is invoked automatically by ServeSTDIO and
// MessageHandler.
func (s *Server) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		if err := s.validator.Initialize(ctx); err != nil {
			s.initErr = errors.Wrap(err, "failed to initialize schema validator")
			return
		}
		for _, svc := range s.services {
			if err := svc.Initialize(ctx); err != nil {
				s.initErr = errors.Wrapf(err, "failed to initialize service '%s'", svc.GetName())
				return
			}
		}
	})
	return s.initErr
}

// MessageHandler returns the composed middleware pipeline: schema
// validation in front of method dispatch. The HTTP transport calls this
// once per process; the result is safe for concurrent use.
func (s *Server) MessageHandler(ctx context.Context) (mcptypes.MessageHandler, error) {
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	s.handlerOnce.Do(func() {
		validationOpts := middleware.DefaultValidationOptions()
		if s.options.Debug {
			validationOpts.MeasurePerformance = true
		}

		chain := middleware.NewChain(s.handleMessage)
		chain.Use(func(next mcptypes.MessageHandler) mcptypes.MessageHandler {
			mw := middleware.NewValidationMiddleware(s.validator, validationOpts, s.logger)
			mw.SetNext(transport.MessageHandler(next))
			return mw.HandleMessage
		})
		s.composed = chain.Handler()
	})
	return s.composed, nil
}

// ServeSTDIO serves the MCP protocol over stdin/stdout using NDJSON
// framing. This is the mode used when a client launches the server as a
// subprocess.
func (s *Server) ServeSTDIO(ctx context.Context) error {
	s.logger.Info("Starting server with stdio transport.")
	s.transport = transport.NewNDJSONTransport(os.Stdin, os.Stdout, nil, s.logger)
	return s.serve(ctx, s.transport)
}

// ServeTransport serves the MCP protocol over the given transport. Used by
// tests with the in-memory transport pair.
func (s *Server) ServeTransport(ctx context.Context, t transport.Transport) error {
	s.transport = t
	return s.serve(ctx, t)
}

// HandleMessage processes a single raw JSON-RPC message through the full
// middleware pipeline and returns the response bytes, or nil for a
// notification. Protocol failures come back as JSON-RPC error responses
// rather than Go errors, so the caller can write the result directly.
// This is the entry point for one-request-per-POST HTTP serving.
func (s *Server) HandleMessage(ctx context.Context, message []byte) ([]byte, error) {
	handler, err := s.MessageHandler(ctx)
	if err != nil {
		return nil, err
	}
	response, err := s.dispatch(ctx, handler, message)
	if err != nil {
		return s.createErrorResponse(message, err)
	}
	return response, nil
}

func (s *Server) serve(ctx context.Context, t transport.Transport) error {
	handler, err := s.MessageHandler(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		message, err := t.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || transport.IsClosedError(err) {
				s.logger.Info("Connection closed.")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("Failed to read message.", "error", err)
			continue
		}

		response, err := s.dispatch(ctx, handler, message)
		if err != nil {
			errorResp, respErr := s.createErrorResponse(message, err)
			if respErr != nil {
				s.logger.Error("Failed to create error response.", "error", respErr)
				continue
			}
			response = errorResp
		}

		if response == nil {
			continue // Notification: nothing to write.
		}
		if err := t.WriteMessage(ctx, response); err != nil {
			if transport.IsClosedError(err) {
				return nil
			}
			s.logger.Error("Failed to write response.", "error", err)
		}
	}
}

// dispatch runs one message through the middleware pipeline, applying the
// per-request timeout if configured.
func (s *Server) dispatch(ctx context.Context, handler mcptypes.MessageHandler, message []byte) ([]byte, error) {
	if s.options.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.RequestTimeout)
		defer cancel()
	}
	return handler(ctx, message)
}

// handleMessage is the final stage of the pipeline: it enforces the session
// lifecycle, routes requests to method handlers, and wraps results in
// JSON-RPC success responses.
func (s *Server) handleMessage(ctx context.Context, message []byte) ([]byte, error) {
	var jsonRPC map[string]json.RawMessage
	if err := json.Unmarshal(message, &jsonRPC); err != nil {
		return nil, transport.NewParseError(message, err)
	}

	methodBytes, hasMethod := jsonRPC["method"]
	if !hasMethod {
		s.logger.Warn("Received non-request message, ignoring.")
		return nil, nil
	}
	var method string
	if err := json.Unmarshal(methodBytes, &method); err != nil {
		return nil, errors.Wrap(err, "failed to parse method name")
	}

	idBytes, hasID := jsonRPC["id"]
	isNotification := !hasID || string(idBytes) == "null"

	if isNotification {
		s.handleNotification(ctx, method)
		return nil, nil
	}

	if err := s.checkSessionState(ctx, method); err != nil {
		return nil, err
	}

	handler, exists := s.methods[method]
	if !exists {
		return nil, mcperror.NewMethodNotFoundError(method)
	}

	var params json.RawMessage
	if paramsBytes, hasParams := jsonRPC["params"]; hasParams {
		params = paramsBytes
	}

	result, err := handler(ctx, params)
	if err != nil {
		return nil, err
	}

	response := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(idBytes),
		"result":  json.RawMessage(result),
	}
	responseBytes, err := json.Marshal(response)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal response")
	}
	return responseBytes, nil
}

// handleNotification processes client notifications. Only the lifecycle
// acknowledgement changes server state; everything else is ignored.
func (s *Server) handleNotification(ctx context.Context, method string) {
	switch method {
	case "notifications/initialized":
		if s.options.Stateless {
			return
		}
		if err := s.session.Transition(ctx, SessionEventInitialized, nil); err != nil {
			s.logger.Warn("Unexpected notifications/initialized for session state.",
				"state", s.session.CurrentState(), "error", err)
		}
	default:
		s.logger.Debug("Ignoring notification.", "method", method)
	}
}

// checkSessionState enforces the initialize handshake on stateful
// transports: before the session is ready only initialize and ping are
// accepted.
func (s *Server) checkSessionState(ctx context.Context, method string) error {
	if s.options.Stateless {
		return nil
	}

	switch method {
	case "ping":
		return nil
	case "initialize":
		if err := s.session.Transition(ctx, SessionEventInitialize, nil); err != nil {
			s.logger.Warn("initialize received in unexpected session state.",
				"state", s.session.CurrentState(), "error", err)
		}
		return nil
	default:
		if s.session.CurrentState() != SessionReady {
			return mcperror.NewNotInitializedError(method)
		}
		return nil
	}
}

// createErrorResponse builds a JSON-RPC error response from a handler
// error, mapping error properties to the right code.
func (s *Server) createErrorResponse(message []byte, err error) ([]byte, error) {
	var id interface{}
	var req map[string]json.RawMessage
	if parseErr := json.Unmarshal(message, &req); parseErr == nil {
		if idRaw, ok := req["id"]; ok {
			_ = json.Unmarshal(idRaw, &id)
		}
	}

	var code int
	var msg string
	var data map[string]interface{}
	var transportErr *transport.Error
	if errors.As(err, &transportErr) {
		code, msg, data = transport.MapErrorToJSONRPC(err)
	} else {
		code = mcperror.GetErrorCode(err)
		msg = mcperror.UserFacingMessage(code)
		data = mcperror.ErrorToMap(err)
	}

	errResp := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]interface{}{
			"code":    code,
			"message": msg,
			"data":    data,
		},
	}
	return json.Marshal(errResp)
}

// Shutdown stops the server and releases its resources.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutting down server.")

	if !s.options.Stateless {
		if err := s.session.Transition(context.Background(), SessionEventClose, nil); err != nil {
			s.logger.Debug("Session already closed or never opened.", "error", err)
		}
	}

	var firstErr error
	for _, svc := range s.services {
		if err := svc.Shutdown(); err != nil {
			s.logger.Error("Service shutdown failed.", "service", svc.GetName(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := s.validator.Shutdown(); err != nil && firstErr == nil {
		firstErr = err
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil && !transport.IsClosedError(err) && firstErr == nil {
			firstErr = errors.Wrap(err, "failed to close transport")
		}
	}
	return firstErr
}
