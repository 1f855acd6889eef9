package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/logicapp-mcp/internal/auth"
	"github.com/Azure/logicapp-mcp/internal/ctx"
	"github.com/Azure/logicapp-mcp/internal/dispatcher"
	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/Azure/logicapp-mcp/internal/telemetry"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// maxRequestBody bounds the size of a forwarded MCP request.
const maxRequestBody = 10 << 20

// Handler returns the HTTP facade with its middleware chain. It is only
// valid after Initialize.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /logic-apps", s.handleListAll)
	mux.HandleFunc("GET /logic-apps/consumption", s.handleListTier(FamilyConsumption))
	mux.HandleFunc("GET /logic-apps/standard", s.handleListTier(FamilyStandard))
	for _, family := range familyOrder {
		mux.HandleFunc("POST /mcp/"+family+"/request", s.handleMCPRequest(family))
	}
	mux.HandleFunc("POST /mcp/request", s.handleMCPRequest(FamilyConsumption))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/mcp", s.streamableServer())

	authMiddleware, err := auth.NewHTTPAuthMiddleware(s.cfg.Auth)
	if err != nil {
		// Only reachable with a config that skipped validation.
		logger.Errorf("Authentication disabled: %v", err)
		authMiddleware, _ = auth.NewHTTPAuthMiddleware(nil)
	}

	var handler http.Handler = mux
	handler = authMiddleware.Middleware(handler)
	handler = s.traceRequests(handler)
	handler = azureToken(handler)
	handler = requestID(handler)
	handler = cors(handler)
	return handler
}

// streamableHandler serves only the streamable HTTP endpoint, with the same
// request plumbing as the facade.
func (s *Service) streamableHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("/mcp", s.streamableServer())

	authMiddleware, err := auth.NewHTTPAuthMiddleware(s.cfg.Auth)
	if err != nil {
		logger.Errorf("Authentication disabled: %v", err)
		authMiddleware, _ = auth.NewHTTPAuthMiddleware(nil)
	}
	return requestID(azureToken(authMiddleware.Middleware(mux)))
}

func (s *Service) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logic App MCP Server is running",
		"version": s.cfg.ServerVersion,
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": s.cfg.ServerName,
	})
}

func (s *Service) handleListAll(w http.ResponseWriter, r *http.Request) {
	var consumption, standard []map[string]any

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		consumption = s.adapters.Consumption(gctx, s.defaults).ListLogicApps(gctx)
		return nil
	})
	g.Go(func() error {
		standard = s.adapters.Standard(gctx, s.defaults).ListLogicApps(gctx)
		return nil
	})
	_ = g.Wait()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"consumption_logic_apps": consumption,
		"standard_logic_apps":    standard,
		"total_count":            len(consumption) + len(standard),
	})
}

func (s *Service) handleListTier(family string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var apps []map[string]any
		if family == FamilyStandard {
			apps = s.adapters.Standard(r.Context(), s.defaults).ListLogicApps(r.Context())
		} else {
			apps = s.adapters.Consumption(r.Context(), s.defaults).ListLogicApps(r.Context())
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{family + "_logic_apps": apps})
	}
}

func (s *Service) handleMCPRequest(family string) http.HandlerFunc {
	d := s.dispatchers[family]
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			writeParseError(w, fmt.Sprintf("Parse error: %v", err))
			return
		}

		var raw map[string]interface{}
		if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
			writeParseError(w, "Parse error: request body must be a JSON object")
			return
		}

		resp := d.HandleRequest(r.Context(), dispatcher.Request{
			Method: raw["method"],
			Params: raw["params"],
			ID:     raw["id"],
		})
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeParseError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, dispatcher.Response{
		Error: &dispatcher.Error{Code: mcp.PARSE_ERROR, Message: message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "*")
		h.Set("Access-Control-Allow-Headers", "*")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID keeps a caller supplied X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(string(ctx.RequestIDKey))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(string(ctx.RequestIDKey), id)
		next.ServeHTTP(w, r.WithContext(ctx.WithRequestID(r.Context(), id)))
	})
}

// azureToken passes a caller supplied ARM token on to the adapters.
func azureToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.Header.Get(string(ctx.AzureTokenKey)); token != "" {
			r = r.WithContext(ctx.WithAzureToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Service) traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := routeLabel(r.URL.Path)
		spanCtx, span := s.telemetry.StartSpan(r.Context(), r.Method+" "+route,
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("request.id", ctx.RequestID(r.Context())),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(spanCtx))

		span.SetAttributes(attribute.Int("http.status_code", rec.status))
		if rec.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.status))
		}
		telemetry.HTTPRequest(route, rec.status)
	})
}

var knownRoutes = map[string]bool{
	"/":                        true,
	"/health":                  true,
	"/logic-apps":              true,
	"/logic-apps/consumption":  true,
	"/logic-apps/standard":     true,
	"/metrics":                 true,
	"/mcp":                     true,
	"/mcp/request":             true,
	"/mcp/consumption/request": true,
	"/mcp/standard/request":    true,
	"/mcp/kudu/request":        true,
}

// routeLabel keeps metric cardinality bounded.
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}
