package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/bank-advisor/internal/application"
	appadvisory "github.com/bryanwahyu/bank-advisor/internal/application/advisory"
	apptickets "github.com/bryanwahyu/bank-advisor/internal/application/tickets"
	"github.com/bryanwahyu/bank-advisor/internal/config"
	"github.com/bryanwahyu/bank-advisor/internal/domain/catalog"
	"github.com/bryanwahyu/bank-advisor/internal/domain/customer"
	"github.com/bryanwahyu/bank-advisor/internal/domain/finance"
	"github.com/bryanwahyu/bank-advisor/internal/middleware"
)

const maxBodyBytes = 1 << 20

// Pages lists the static pages served under /pages/{page}.
var Pages = []string{"deposit.html", "loan.html"}

type Options struct {
	Config   *config.Config
	Advisory *appadvisory.Service
	Tickets  *apptickets.Service
	Catalog  *catalog.Catalog
	Metrics  *middleware.Metrics
	Logger   *zap.Logger
	Clock    application.Clock
	Checkers map[string]middleware.HealthChecker
}

type Router struct {
	cfg      *config.Config
	advisory *appadvisory.Service
	tickets  *apptickets.Service
	catalog  *catalog.Catalog
	metrics  *middleware.Metrics
	logger   *zap.Logger
	clock    application.Clock

	limiter   *middleware.RateLimiter
	aiLimiter *middleware.RateLimiter
	mux       chi.Router
}

func NewRouter(opts Options) *Router {
	r := &Router{
		cfg:       opts.Config,
		advisory:  opts.Advisory,
		tickets:   opts.Tickets,
		catalog:   opts.Catalog,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		clock:     opts.Clock,
		limiter:   middleware.NewRateLimiter(opts.Config.RateLimit.Requests, opts.Config.RateLimit.Window),
		aiLimiter: middleware.NewRateLimiter(opts.Config.RateLimit.AIRequests, opts.Config.RateLimit.AIWindow),
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.clock == nil {
		r.clock = application.SystemClock{}
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.SecurityHeaders)
	mux.Use(middleware.LoggingMiddleware(r.logger))
	mux.Use(chimw.Recoverer)
	mux.Use(r.metrics.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.Config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
	mux.Use(r.limiter.Middleware)

	health := r.health(opts.Checkers)
	mux.Get("/health", health.Handler())
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", health.ReadyHandler())
	mux.Handle("/metrics", r.metrics.MetricsHandler())

	mux.Get("/", r.wrap(r.handleIndex))
	mux.Get("/pages/{page}", r.wrap(r.handlePage))

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/status", r.wrap(r.handleStatus))
		rt.Get("/waiting-info", r.wrap(r.handleWaitingInfo))
		rt.Post("/issue-ticket", r.wrap(r.handleIssueTicket))
		rt.Post("/feedback", r.wrap(r.handleFeedback))
		rt.Get("/support", r.wrap(r.handleSupport))
		rt.Post("/language", r.wrap(r.handleLanguage))

		rt.Route("/{service}", func(st chi.Router) {
			st.Get("/products", r.wrap(r.handleProducts))
			st.Post("/calculate", r.wrap(r.handleDepositCalculate))
			st.Post("/simulate-repayment", r.wrap(r.handleLoanRepayment))
			st.Group(func(ai chi.Router) {
				ai.Use(r.aiLimiter.Middleware)
				ai.Post("/analyze", r.wrap(r.handleAnalyze))
				ai.Post("/analyze-customer", r.wrap(r.handleAnalyze))
				ai.Post("/recommend-products", r.wrap(r.handleRecommend))
			})
		})
	})

	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		r.writeJSON(w, http.StatusNotFound, map[string]any{
			"success":   false,
			"error":     "Not Found",
			"message":   fmt.Sprintf("The requested resource %s was not found on this server.", req.URL.Path),
			"timestamp": r.clock.Now(),
		})
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		r.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
			"success": false,
			"error":   "Method Not Allowed",
		})
	})

	r.mux = mux
	return r
}

// health checks the catalog and ticket counter for readiness. A missing
// model key only degrades the report, since the rules still answer.
func (r *Router) health(extra map[string]middleware.HealthChecker) *middleware.Health {
	h := middleware.NewHealth(r.cfg.Server.Version)
	h.Add("catalog", r.catalog)
	h.Add("tickets", r.tickets)
	for name, c := range extra {
		h.Add(name, c)
	}
	h.AddOptional("ai", middleware.HealthCheckFunc(func(context.Context) error {
		if !r.cfg.AIEnabled() {
			return errors.New("no api key configured, serving rule-based results")
		}
		return nil
	}))
	return h
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close stops the rate limiter janitors.
func (r *Router) Close() {
	r.limiter.Close()
	r.aiLimiter.Close()
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries a status chosen by the handler.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &httpError{status: http.StatusNotFound, message: fmt.Sprintf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		requestID := chimw.GetReqID(req.Context())

		var verr *customer.ValidationError
		var herr *httpError
		switch {
		case errors.As(err, &verr):
			body := map[string]any{"success": false, "error": verr.Message, "requestId": requestID}
			if len(verr.MissingFields) > 0 {
				body["missingFields"] = verr.MissingFields
			}
			if len(verr.InvalidFields) > 0 {
				body["invalidFields"] = verr.InvalidFields
			}
			if len(verr.ValidValues) > 0 {
				body["validValues"] = verr.ValidValues
			}
			r.writeJSON(w, http.StatusBadRequest, body)
		case errors.As(err, &herr):
			r.writeError(w, herr.status, herr.message, requestID)
		case errors.Is(err, appadvisory.ErrUnknownService):
			r.writeError(w, http.StatusNotFound, "Unknown service type", requestID)
		case errors.Is(err, finance.ErrInvalidInput), errors.Is(err, finance.ErrUnsupportedRepayment):
			r.writeError(w, http.StatusBadRequest, err.Error(), requestID)
		case errors.Is(err, context.Canceled):
			r.logger.Info("client went away", zap.String("request_id", requestID), zap.String("path", req.URL.Path))
		case errors.Is(err, appadvisory.ErrInternal), errors.Is(err, context.DeadlineExceeded):
			r.logger.Error("analysis unavailable", zap.String("request_id", requestID), zap.Error(err))
			r.writeError(w, http.StatusServiceUnavailable, "Analysis service temporarily unavailable, please try again later", requestID)
		default:
			r.logger.Error("handler failed", zap.String("request_id", requestID), zap.String("path", req.URL.Path), zap.Error(err))
			r.writeError(w, http.StatusInternalServerError, "Internal Server Error", requestID)
		}
	}
}

func (r *Router) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		r.logger.Warn("encode response", zap.Error(err))
	}
}

func (r *Router) writeError(w http.ResponseWriter, status int, message, requestID string) {
	r.writeJSON(w, status, map[string]any{
		"success":   false,
		"error":     message,
		"requestId": requestID,
		"timestamp": r.clock.Now(),
	})
}

func decodeBody(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body")
	}
	return nil
}

func (r *Router) now() time.Time { return r.clock.Now() }
