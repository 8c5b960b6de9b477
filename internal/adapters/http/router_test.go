package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kirillkom/irrrl-engine/internal/config"
	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

func do(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func submissionBody() map[string]any {
	return map[string]any{
		"type":     "rate_and_term",
		"borrower": map[string]any{"first_name": "Dana", "last_name": "Reyes"},
		"requested": map[string]any{
			"terms": map[string]any{"principal": "250000", "annual_rate_percent": "6.0", "term_months": 300},
		},
		"total_loan_costs": "2500",
	}
}

func TestHealthzEndpoint(t *testing.T) {
	res := do(t, newTestDeps().handler(config.Config{}), http.MethodGet, "/healthz", nil, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestSubmitApplicationUsesActorHeader(t *testing.T) {
	deps := newTestDeps()
	res := do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications", submissionBody(), map[string]string{actorHeader: "officer-7"})

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("Location") != "/v1/applications/app-1" {
		t.Fatalf("unexpected location %q", res.Header().Get("Location"))
	}
	if deps.intake.got.SubmittedBy != "officer-7" {
		t.Fatalf("expected actor officer-7, got %q", deps.intake.got.SubmittedBy)
	}
	if !deps.intake.got.Requested.Terms.Principal.Equal(decimal.NewFromInt(250000)) {
		t.Fatalf("unexpected principal %s", deps.intake.got.Requested.Terms.Principal)
	}
}

func TestSubmitApplicationDefaultsToAnonymousActor(t *testing.T) {
	deps := newTestDeps()
	do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications", submissionBody(), nil)
	if deps.intake.got.SubmittedBy != anonymousActor {
		t.Fatalf("expected anonymous actor, got %q", deps.intake.got.SubmittedBy)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid input", err: domain.WrapError(domain.ErrInvalidInput, "submit", errors.New("bad")), want: http.StatusBadRequest},
		{name: "not found", err: domain.WrapError(domain.ErrApplicationNotFound, "load", errors.New("id=x")), want: http.StatusNotFound},
		{name: "conflict", err: domain.WrapError(domain.ErrConcurrentModification, "save", errors.New("stale")), want: http.StatusConflict},
		{name: "missing data", err: domain.WrapError(domain.ErrMissingPrerequisiteData, "ntb", errors.New("no loan")), want: http.StatusUnprocessableEntity},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "lock", errors.New("redis down")), want: http.StatusServiceUnavailable},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := newTestDeps()
			deps.decisions.err = tc.err
			res := do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/ntb", nil, nil)
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestInternalErrorsDoNotLeakDetails(t *testing.T) {
	deps := newTestDeps()
	deps.decisions.err = errors.New("pq: password authentication failed")
	res := do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/eligibility", nil, nil)
	if strings.Contains(res.Body.String(), "password") {
		t.Fatalf("expected generic message, got %s", res.Body.String())
	}
}

func TestGetApplicationNotFound(t *testing.T) {
	res := do(t, newTestDeps().handler(config.Config{}), http.MethodGet, "/v1/applications/missing", nil, nil)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestListApplicationsBindsQuery(t *testing.T) {
	deps := newTestDeps()
	res := do(t, deps.handler(config.Config{}), http.MethodGet, "/v1/applications?status=underwriter_ready&limit=10", nil, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if deps.reader.gotStatus != domain.StatusUnderwriterReady || deps.reader.gotLimit != 10 {
		t.Fatalf("unexpected bound query status=%q limit=%d", deps.reader.gotStatus, deps.reader.gotLimit)
	}

	res = do(t, deps.handler(config.Config{}), http.MethodGet, "/v1/applications?limit=ten", nil, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed limit, got %d", res.Code)
	}
}

func TestTransitionAccepted(t *testing.T) {
	deps := newTestDeps()
	deps.workflow.outcome = workflow.Outcome{Accepted: true, From: domain.StatusSubmitted, To: domain.StatusCancelled}
	res := do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/transitions",
		map[string]string{"target": "Cancelled", "note": " borrower withdrew "}, map[string]string{actorHeader: "officer-1"})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.workflow.gotTarget != domain.StatusCancelled || deps.workflow.gotActor != "officer-1" || deps.workflow.gotNote != "borrower withdrew" {
		t.Fatalf("unexpected transition args %+v", deps.workflow)
	}
}

func TestTransitionRejectedReturns409WithReason(t *testing.T) {
	deps := newTestDeps()
	deps.workflow.outcome = workflow.Outcome{Accepted: false, From: domain.StatusSubmitted, To: domain.StatusApproved, Reason: "transition from submitted to approved is not allowed"}
	res := do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/transitions", map[string]string{"target": "approved"}, nil)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
	var body rejectionResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != deps.workflow.outcome.Reason {
		t.Fatalf("expected rejection reason, got %q", body.Error)
	}
}

func TestTransitionUnknownTargetReturns400(t *testing.T) {
	res := do(t, newTestDeps().handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/transitions", map[string]string{"target": "funded"}, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestWorkflowAction(t *testing.T) {
	deps := newTestDeps()
	deps.workflow.outcomes = []workflow.Outcome{
		{Accepted: true, From: domain.StatusAIProcessing, To: domain.StatusFilePreparation},
		{Accepted: false, From: domain.StatusFilePreparation, To: domain.StatusUnderwriterReady, Reason: "nope"},
	}
	res := do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/workflow/prepare-for-underwriter", nil, nil)
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for partially rejected action, got %d", res.Code)
	}
	if deps.workflow.gotAction != workflow.ActionPrepareForUnderwriter {
		t.Fatalf("unexpected action %q", deps.workflow.gotAction)
	}

	res = do(t, deps.handler(config.Config{}), http.MethodPost, "/v1/applications/app-1/workflow/fund-loan", nil, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", res.Code)
	}
}

func TestAllowedTransitionsAndChecklist(t *testing.T) {
	deps := newTestDeps()
	deps.workflow.allowed = []domain.ApplicationStatus{domain.StatusAIAnalyzing, domain.StatusCancelled}
	deps.workflow.docs = []domain.DocumentType{domain.DocCertificateOfEligibility}
	handler := deps.handler(config.Config{})

	res := do(t, handler, http.MethodGet, "/v1/applications/app-1/transitions", nil, nil)
	var allowed allowedResponse
	if err := json.Unmarshal(res.Body.Bytes(), &allowed); err != nil || len(allowed.Allowed) != 2 {
		t.Fatalf("unexpected allowed response %s (%v)", res.Body.String(), err)
	}

	res = do(t, handler, http.MethodGet, "/v1/applications/app-1/checklist", nil, nil)
	var checklist checklistResponse
	if err := json.Unmarshal(res.Body.Bytes(), &checklist); err != nil {
		t.Fatalf("decode checklist: %v", err)
	}
	if len(checklist.Documents) != 1 || checklist.Documents[0].Label != "Certificate of Eligibility (COE)" {
		t.Fatalf("unexpected checklist %+v", checklist)
	}
}

func TestWorksheetDownload(t *testing.T) {
	deps := newTestDeps()
	deps.decisions.worksheet = []byte("xlsx-bytes")
	res := do(t, deps.handler(config.Config{}), http.MethodGet, "/v1/applications/app-1/ntb/worksheet", nil, nil)

	if res.Code != http.StatusOK || res.Body.String() != "xlsx-bytes" {
		t.Fatalf("unexpected worksheet response %d %q", res.Code, res.Body.String())
	}
	if res.Header().Get("Content-Type") != worksheetContentType {
		t.Fatalf("unexpected content type %q", res.Header().Get("Content-Type"))
	}
	if !strings.Contains(res.Header().Get("Content-Disposition"), "ntb-app-1.xlsx") {
		t.Fatalf("unexpected disposition %q", res.Header().Get("Content-Disposition"))
	}
}

func TestOpenAPIValidationRejectsMalformedSubmission(t *testing.T) {
	deps := newTestDeps()
	handler := deps.handler(config.Config{APIOpenAPIValidation: true})

	body := submissionBody()
	delete(body, "borrower")
	res := do(t, handler, http.MethodPost, "/v1/applications", body, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "request validation failed") {
		t.Fatalf("expected validator message, got %s", res.Body.String())
	}
	if deps.intake.got.Type != "" {
		t.Fatalf("expected intake not to be called")
	}
}

func TestOpenAPIValidationRejectsTermAboveCeiling(t *testing.T) {
	deps := newTestDeps()
	handler := deps.handler(config.Config{APIOpenAPIValidation: true})

	body := submissionBody()
	body["requested"] = map[string]any{
		"terms": map[string]any{"principal": "250000", "annual_rate_percent": "6.0", "term_months": 200000},
	}
	res := do(t, handler, http.MethodPost, "/v1/applications", body, nil)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}
	if deps.intake.got.Type != "" {
		t.Fatalf("expected intake not to be called")
	}
}

func TestOpenAPIValidationPassesValidRequests(t *testing.T) {
	deps := newTestDeps()
	deps.workflow.outcome = workflow.Outcome{Accepted: true, From: domain.StatusSubmitted, To: domain.StatusCancelled}
	handler := deps.handler(config.Config{APIOpenAPIValidation: true})

	res := do(t, handler, http.MethodPost, "/v1/applications", submissionBody(), nil)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	res = do(t, handler, http.MethodPost, "/v1/applications/app-1/transitions", map[string]string{"target": "cancelled"}, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if deps.workflow.gotTarget != domain.StatusCancelled {
		t.Fatalf("expected body to reach handler after validation, got %q", deps.workflow.gotTarget)
	}
}

func TestOpenAPIDocumentLoads(t *testing.T) {
	if _, err := newRequestValidator(); err != nil {
		t.Fatalf("newRequestValidator() error = %v", err)
	}
}
