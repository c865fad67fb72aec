package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"food-analyzer-backend/internal/agent"
	"food-analyzer-backend/internal/config"
	"food-analyzer-backend/internal/types"
)

// AgentRunner runs one agent turn over a conversation. *agent.Runner
// satisfies it.
type AgentRunner interface {
	Run(ctx context.Context, a agent.Agent, input []types.Message) (agent.Result, error)
}

type Server struct {
	router  *chi.Mux
	runner  AgentRunner
	agent   agent.Agent
	cfg     config.Config
	limiter *RateLimiter
}

func NewServer(cfg config.Config, runner AgentRunner, a agent.Agent) (*Server, error) {
	if runner == nil {
		return nil, errors.New("server: agent runner must not be nil")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(cfg.AllowedOrigins)))

	s := &Server{
		router: r,
		runner: runner,
		agent:  a,
		cfg:    cfg,
	}
	if cfg.RateLimitRPM > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst)
		r.Use(s.limiter.Middleware)
	}
	s.routes()
	return s, nil
}

// corsOptions allows credentialed requests. A "*" entry (or no list) admits
// every origin by echoing it back, since browsers refuse a literal "*"
// alongside Allow-Credentials.
func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return opts
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/chat", s.handleChat)
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	msgs, err := decodeChatRequest(r.Body, s.cfg.MaxMessages)
	if err != nil {
		s.writeDecodeError(w, r, err)
		return
	}

	res, err := s.runner.Run(r.Context(), s.agent, msgs)
	if err != nil {
		if errors.Is(err, agent.ErrInvalidInput) {
			s.writeValidation(w, []types.ValidationIssue{{
				Loc:  []any{"body", "messages"},
				Msg:  err.Error(),
				Type: "value_error",
			}})
			return
		}
		attrs := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"agent", s.agent.Name,
			"messages", len(msgs),
			"err", err,
		}
		if status, ok := agent.UpstreamStatus(err); ok {
			attrs = append(attrs, "upstream_status", status)
		}
		slog.Error("[chat] agent run failed", attrs...)
		s.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, types.ChatResponse{Response: res.FinalOutput})
}

func (s *Server) writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	var vErr *validationError
	switch {
	case errors.As(err, &maxErr):
		s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
	case errors.As(err, &vErr):
		s.writeValidation(w, vErr.issues)
	default:
		slog.Debug("[chat] rejected body", "request_id", middleware.GetReqID(r.Context()), "err", err)
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
	}
}

func (s *Server) writeValidation(w http.ResponseWriter, issues []types.ValidationIssue) {
	writeJSON(w, http.StatusUnprocessableEntity, types.ErrorResponse{Error: "validation failed", Detail: issues})
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
