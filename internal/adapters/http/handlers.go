package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/irrrl-engine/internal/core/domain"
	"github.com/kirillkom/irrrl-engine/internal/core/workflow"
)

const worksheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, r.PathValue(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind path parameter", err)
	}
	return value, nil
}

func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	return nil
}

func (rt *Router) submitApplication(w http.ResponseWriter, r *http.Request) {
	var in domain.SubmitApplicationInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.SubmittedBy = actorFromRequest(r)

	app, err := rt.intake.Submit(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/applications/"+app.ID)
	writeJSON(w, http.StatusCreated, app)
}

type listResponse struct {
	Items []domain.ApplicationSummary `json:"items"`
}

func (rt *Router) listApplications(w http.ResponseWriter, r *http.Request) {
	var (
		rawStatus string
		limit     int
	)
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &rawStatus); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind query parameter", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind query parameter", err))
		return
	}

	items, err := rt.reader.ListByStatus(r.Context(), domain.ApplicationStatus(rawStatus), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

func (rt *Router) getApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, err := rt.reader.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (rt *Router) calculateNTB(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := rt.decisions.CalculateNTB(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) ntbWorksheet(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := rt.decisions.Worksheet(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", worksheetContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ntb-%s.xlsx"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) verifyEligibility(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	report, err := rt.decisions.VerifyEligibility(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type allowedResponse struct {
	Allowed []domain.ApplicationStatus `json:"allowed"`
}

func (rt *Router) allowedTransitions(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	allowed, err := rt.workflow.AllowedTransitions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, allowedResponse{Allowed: allowed})
}

type transitionRequest struct {
	Target string `json:"target"`
	Note   string `json:"note"`
}

type rejectionResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	Outcomes  any    `json:"outcomes"`
}

func (rt *Router) requestTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transitionRequest
	if err := decodeJSON(r, w, &req); err != nil {
		writeError(w, r, err)
		return
	}
	target, err := domain.ParseApplicationStatus(req.Target)
	if err != nil {
		writeError(w, r, err)
		return
	}

	outcome, err := rt.workflow.Transition(r.Context(), id, target, actorFromRequest(r), strings.TrimSpace(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !outcome.Accepted {
		writeRejection(w, r, outcome.Reason, outcome)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) runWorkflowAction(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rawAction, err := pathParam(r, "action")
	if err != nil {
		writeError(w, r, err)
		return
	}
	action, err := workflow.ParseAction(rawAction)
	if err != nil {
		writeError(w, r, err)
		return
	}

	outcomes, err := rt.workflow.RunAction(r.Context(), id, action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, outcome := range outcomes {
		if !outcome.Accepted {
			writeRejection(w, r, outcome.Reason, outcomes)
			return
		}
	}
	writeJSON(w, http.StatusOK, outcomes)
}

func writeRejection(w http.ResponseWriter, r *http.Request, reason string, outcomes any) {
	if reason == "" {
		reason = domain.ErrInvalidTransition.Error()
	}
	writeJSON(w, http.StatusConflict, rejectionResponse{
		Error:     reason,
		RequestID: requestIDFromContext(r.Context()),
		Outcomes:  outcomes,
	})
}

type checklistItem struct {
	Type  domain.DocumentType `json:"type"`
	Label string              `json:"label"`
}

type checklistResponse struct {
	Documents []checklistItem `json:"documents"`
}

func (rt *Router) documentChecklist(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	docs, err := rt.workflow.Checklist(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := checklistResponse{Documents: make([]checklistItem, 0, len(docs))}
	for _, doc := range docs {
		out.Documents = append(out.Documents, checklistItem{Type: doc, Label: doc.Label()})
	}
	writeJSON(w, http.StatusOK, out)
}

