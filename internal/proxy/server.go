// Package proxy serves the command router and the order parser over HTTP.
package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/stockdesk/ai-proxy/internal/command"
	"github.com/stockdesk/ai-proxy/internal/jsonx"
	"github.com/stockdesk/ai-proxy/internal/orders"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

// OrderParser extracts orders from pasted text.
type OrderParser interface {
	Extract(ctx context.Context, text string, useAI bool) []orders.Order
}

// Metrics receives request and command counters.
type Metrics interface {
	ObserveCommand(action string)
	ObserveRequest(route, method string, code int, elapsed time.Duration)
	Handler() http.Handler
}

// Server handles HTTP requests
type Server struct {
	parser         OrderParser
	metrics        Metrics
	route          func(string) command.Command
	allowedOrigins []string
	logger         *zap.Logger
}

// NewServer creates a new server. metrics may be nil.
func NewServer(parser OrderParser, metrics Metrics, logger *zap.Logger, allowedOrigins ...string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{
		parser:         parser,
		metrics:        metrics,
		route:          command.Route,
		allowedOrigins: allowedOrigins,
		logger:         logger.Named("proxy"),
	}
}

// SetupRoutes registers all routes on r.
func (s *Server) SetupRoutes(r *mux.Router) {
	r.Use(requestIDMiddleware, s.loggingMiddleware, s.recoveryMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ai/command", s.handleCommand).Methods(http.MethodPost)
	r.HandleFunc("/ai/parse-orders", s.handleParseOrders).Methods(http.MethodPost)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		s.logger.Debug("Route registered", zap.String("path", pathTemplate), zap.Strings("methods", methods))
		return nil
	})
}

// Handler returns the routed handler wrapped with CORS.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.SetupRoutes(r)

	opts := []handlers.CORSOption{
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	}
	if len(s.allowedOrigins) == 1 && s.allowedOrigins[0] == "*" {
		// Reflect the caller's origin.
		opts = append(opts, handlers.AllowedOriginValidator(func(string) bool { return true }))
	} else {
		opts = append(opts, handlers.AllowedOrigins(s.allowedOrigins))
	}
	return handlers.CORS(opts...)(r)
}

type errorResponse struct {
	Error string `json:"error"`
}

type commandRequest struct {
	Text string `json:"text"`
}

type parseOrdersRequest struct {
	Text  string `json:"text"`
	UseAI *bool  `json:"use_ai,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !s.decode(w, r, &req) {
		return
	}

	// A failing route still answers with a command.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("command routing panicked",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			writeJSON(w, http.StatusInternalServerError, command.Unknown(command.MessageNotUnderstood))
		}
	}()

	cmd := s.route(req.Text)
	if s.metrics != nil {
		s.metrics.ObserveCommand(string(cmd.Action))
	}
	writeJSON(w, http.StatusOK, cmd)
}

func (s *Server) handleParseOrders(w http.ResponseWriter, r *http.Request) {
	var req parseOrdersRequest
	if !s.decode(w, r, &req) {
		return
	}

	useAI := req.UseAI == nil || *req.UseAI
	result := s.parser.Extract(r.Context(), req.Text, useAI)
	if result == nil {
		result = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, result)
}

// decode reads a JSON body into v, answering 400 or 413 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return false
	}
	if err := jsonx.Unmarshal(body, v); err != nil {
		s.logger.Debug("invalid request body",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = jsonx.NewEncoder(w).Encode(v)
}
