package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/actions"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/agents"
	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/observability/alerting"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/internal/observability/metrics"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

// Server exposes the REST surface that drives the contract subsystem.
type Server struct {
	addr     string
	registry *actions.Registry
	sync     *agents.Sync
	alerts   alerting.Dispatcher
	log      *slog.Logger
}

// NewServer builds an API server over the given action registry and agent
// sync layer. alerts may be nil when no channel is configured.
func NewServer(addr string, registry *actions.Registry, sync *agents.Sync, alerts alerting.Dispatcher) *Server {
	return &Server{
		addr:     addr,
		registry: registry,
		sync:     sync,
		alerts:   alerts,
		log:      logger.Named("api"),
	}
}

// Start serves HTTP until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", instrument("healthz", s.handleHealth))
	mux.HandleFunc("/api/v1/agents", instrument("agents", s.handleAgents))
	mux.HandleFunc("/api/v1/agents/eligibility", instrument("eligibility", s.handleEligibility))
	mux.HandleFunc("/api/v1/actions", instrument("actions", s.handleActions))
	mux.HandleFunc("/api/v1/actions/", instrument("execute", s.handleExecute))
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info("api server listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.sync.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	raw := r.URL.Query().Get("address")
	if !common.IsHexAddress(raw) {
		s.writeError(w, xerrors.New(xerrors.CodeInvalidArgument,
			"address query parameter must be a hex address"))
		return
	}
	token, err := s.sync.VerifyWalletEligibility(r.Context(), common.HexToAddress(raw))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"eligible": token != nil,
		"token":    token,
	})
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "only GET is supported", http.StatusMethodNotAllowed)
		return
	}
	type actionInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	list := s.registry.List()
	out := make([]actionInfo, 0, len(list))
	for _, action := range list {
		out = append(out, actionInfo{Name: action.Name, Description: action.Description})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExecute runs a named action with a JSON argument object.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is supported", http.StatusMethodNotAllowed)
		return
	}
	name := r.URL.Path[len("/api/v1/actions/"):]
	if name == "" {
		s.writeError(w, xerrors.New(xerrors.CodeInvalidArgument, "action name is required"))
		return
	}

	args := map[string]any{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			s.writeError(w, xerrors.Wrap(xerrors.CodeInvalidArgument, err,
				"request body is not a JSON object"))
			return
		}
	}

	result, err := s.registry.Execute(r.Context(), name, args)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := xerrors.CodeOf(err)
	status := httpStatus(code)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "code", string(code), "error", err)
	}
	if event, page := alerting.FromError("api", err); page && s.alerts != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.alerts.Notify(ctx, event); err != nil {
				s.log.Warn("alert delivery failed", "error", err)
			}
		}()
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    string(code),
			"message": err.Error(),
		},
	})
}

func httpStatus(code xerrors.Code) int {
	switch code {
	case xerrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case xerrors.CodeAuthentication:
		return http.StatusUnauthorized
	case xerrors.CodeReadOnly, xerrors.CodeNoAuthPath:
		return http.StatusForbidden
	case xerrors.CodeNotFound, xerrors.CodeEventNotFound:
		return http.StatusNotFound
	case xerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument wraps a handler with request counting and latency observation.
func instrument(name string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		handler(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(started))
	}
}

// withContext rejects new requests once the root context is cancelled.
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
