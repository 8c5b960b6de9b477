package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/config"
	"github.com/kirillkom/irrrl-engine/internal/core/ports"
	"github.com/kirillkom/irrrl-engine/internal/observability/metrics"
)

const (
	serviceName         = "irrrl-api"
	backpressureWait    = 250 * time.Millisecond
	maxRequestBodyBytes = 1 << 20
)

type Router struct {
	cfg       config.Config
	intake    ports.ApplicationIntake
	reader    ports.ApplicationReader
	decisions ports.DecisionService
	workflow  ports.WorkflowService
	metrics   *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(
	cfg config.Config,
	intake ports.ApplicationIntake,
	reader ports.ApplicationReader,
	decisions ports.DecisionService,
	wf ports.WorkflowService,
	opts ...RouterOption,
) *Router {
	rt := &Router{
		cfg:       cfg,
		intake:    intake,
		reader:    reader,
		decisions: decisions,
		workflow:  wf,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/applications", rt.submitApplication)
	mux.HandleFunc("GET /v1/applications", rt.listApplications)
	mux.HandleFunc("GET /v1/applications/{id}", rt.getApplication)
	mux.HandleFunc("POST /v1/applications/{id}/ntb", rt.calculateNTB)
	mux.HandleFunc("GET /v1/applications/{id}/ntb/worksheet", rt.ntbWorksheet)
	mux.HandleFunc("POST /v1/applications/{id}/eligibility", rt.verifyEligibility)
	mux.HandleFunc("GET /v1/applications/{id}/transitions", rt.allowedTransitions)
	mux.HandleFunc("POST /v1/applications/{id}/transitions", rt.requestTransition)
	mux.HandleFunc("POST /v1/applications/{id}/workflow/{action}", rt.runWorkflowAction)
	mux.HandleFunc("GET /v1/applications/{id}/checklist", rt.documentChecklist)

	var handler http.Handler = mux
	if rt.cfg.APIOpenAPIValidation {
		validator, err := newRequestValidator()
		if err != nil {
			slog.Error("openapi_validator_disabled", "error", err)
		} else {
			handler = validator.Middleware(handler)
		}
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait, rt.throttled("backpressure"))
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.throttled("rate_limited"))
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) throttled(reason string) func() {
	if rt.metrics == nil {
		return nil
	}
	return func() {
		rt.metrics.RecordThrottled(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
