package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

func TestBillingAPI_auth(t *testing.T) {
	server, repo := setup(t)
	today := time.Now().UTC()
	enr, obs := billing.CreateTestEnrollment(t, repo, "std1", "prg1", 100, 3, billing.EnrollmentPending, today)

	adminToken := getToken(t, "val1", true)
	plainToken := getToken(t, "val2", false)

	enrollBody := marshalObj(t, billing.NewEnrollment{
		StudentID: "std9", ProgramID: "prg1", TotalFee: 100, PlanArity: 2, Method: billing.MethodCash,
	})
	proofBody := marshalObj(t, billing.ProofSubmission{ReferenceNumber: "GC-12345678"})
	decisionBody := marshalObj(t, billing.Decision{Decision: billing.StatusValidated})

	tests := []httpTest{
		{name: "home is open", method: http.MethodGet, path: "/", wantCode: http.StatusOK},
		{name: "enroll requires auth", method: http.MethodPost, path: "/v1/enrollments", body: enrollBody, wantCode: http.StatusUnauthorized},
		{name: "enroll requires admin", method: http.MethodPost, path: "/v1/enrollments", body: enrollBody, token: plainToken, wantCode: http.StatusForbidden},
		{name: "enroll with admin", method: http.MethodPost, path: "/v1/enrollments", body: enrollBody, token: adminToken, wantCode: http.StatusCreated},
		{name: "ledger requires auth", method: http.MethodGet, path: "/v1/enrollments/" + enr.ID + "/obligations", wantCode: http.StatusUnauthorized},
		{name: "ledger with any account", method: http.MethodGet, path: "/v1/enrollments/" + enr.ID + "/obligations", token: plainToken, wantCode: http.StatusOK},
		{name: "proof requires auth", method: http.MethodPost, path: "/v1/obligations/" + obs[0].ID + "/proof", body: proofBody, wantCode: http.StatusUnauthorized},
		{name: "proof with any account", method: http.MethodPost, path: "/v1/obligations/" + obs[0].ID + "/proof", body: proofBody, token: plainToken, wantCode: http.StatusOK},
		{name: "validate requires admin", method: http.MethodPost, path: "/v1/obligations/" + obs[0].ID + "/validate", body: decisionBody, token: plainToken, wantCode: http.StatusForbidden},
		{name: "validate with admin", method: http.MethodPost, path: "/v1/obligations/" + obs[0].ID + "/validate", body: decisionBody, token: adminToken, wantCode: http.StatusOK},
		{name: "sweep requires admin", method: http.MethodPost, path: "/v1/sweep", token: plainToken, wantCode: http.StatusForbidden},
		{name: "sweep with admin", method: http.MethodPost, path: "/v1/sweep", token: adminToken, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func TestBillingAPI_paymentFlow(t *testing.T) {
	server, _ := setup(t)
	adminToken := getToken(t, "val1", true)

	// enroll with a 3-way plan
	body := marshalObj(t, billing.NewEnrollment{
		StudentID: "std1", ProgramID: "prg1", TotalFee: 100, PlanArity: 3, Method: billing.MethodGCash,
	})
	req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments", adminToken, body)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var enrolled struct {
		Enrollment  billing.Enrollment          `json:"enrollment"`
		Obligations []billing.PaymentObligation `json:"obligations"`
	}
	unmarshalBody(t, rec, &enrolled)
	assert.Equal(t, billing.EnrollmentPending, enrolled.Enrollment.Status)
	if assert.Len(t, enrolled.Obligations, 3) {
		assert.Equal(t, []int{34, 33, 33}, []int{
			enrolled.Obligations[0].Amount, enrolled.Obligations[1].Amount, enrolled.Obligations[2].Amount,
		})
	}
	first := enrolled.Obligations[0]

	// submit payment proof
	body = marshalObj(t, billing.ProofSubmission{ReferenceNumber: "GC-12345678"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/obligations/%s/proof", first.ID), adminToken, body)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res billing.Result
	unmarshalBody(t, rec, &res)
	assert.Equal(t, billing.StatusPendingValidation, res.Obligation.Status)
	assert.Equal(t, "GC-12345678", res.Obligation.ReferenceNumber)

	// approve it; the decision is attributed to the token's subject
	body = marshalObj(t, billing.Decision{Decision: billing.StatusValidated})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/obligations/%s/validate", first.ID), adminToken, body)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	unmarshalBody(t, rec, &res)
	assert.Equal(t, billing.StatusValidated, res.Obligation.Status)
	assert.Equal(t, "val1", res.Obligation.ValidatedBy)
	assert.Equal(t, billing.EnrollmentActive, res.EnrollmentStatus)

	// a second decision conflicts
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/obligations/%s/validate", first.ID), adminToken, body)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// so does a proof on the validated obligation
	body = marshalObj(t, billing.ProofSubmission{ReferenceNumber: "GC-87654321"})
	req, rec = newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/obligations/%s/proof", first.ID), adminToken, body)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// the ledger reflects everything
	req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/enrollments/%s/obligations", enrolled.Enrollment.ID), adminToken)
	server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var ledger billing.LedgerView
	unmarshalBody(t, rec, &ledger)
	assert.Equal(t, billing.EnrollmentActive, ledger.Enrollment.Status)
	if assert.Len(t, ledger.Obligations, 3) {
		assert.Equal(t, billing.DisplayValidated, ledger.Obligations[0].Display)
	}
	assert.Len(t, ledger.Audit, 1)
}

func TestBillingAPI_errors(t *testing.T) {
	server, repo := setup(t)
	adminToken := getToken(t, "val1", true)
	today := time.Now().UTC()
	_, obs := billing.CreateTestEnrollment(t, repo, "std1", "prg1", 100, 3, billing.EnrollmentPending, today)

	tests := []httpTest{
		{
			name:   "unknown enrollment",
			method: http.MethodGet, path: "/v1/enrollments/nope/obligations",
			token: adminToken, wantCode: http.StatusNotFound,
		},
		{
			name:   "unknown obligation",
			method: http.MethodPost, path: "/v1/obligations/nope/proof",
			body:  marshalObj(t, billing.ProofSubmission{ReferenceNumber: "GC-12345678"}),
			token: adminToken, wantCode: http.StatusNotFound,
		},
		{
			name:   "malformed reference number",
			method: http.MethodPost, path: "/v1/obligations/" + obs[0].ID + "/proof",
			body:  marshalObj(t, billing.ProofSubmission{ReferenceNumber: "no spaces!"}),
			token: adminToken, wantCode: http.StatusBadRequest,
		},
		{
			name:   "invalid plan arity",
			method: http.MethodPost, path: "/v1/enrollments",
			body:  marshalObj(t, billing.NewEnrollment{StudentID: "std2", ProgramID: "prg1", TotalFee: 100, PlanArity: 4, Method: billing.MethodCash}),
			token: adminToken, wantCode: http.StatusBadRequest,
		},
		{
			name:   "invalid decision",
			method: http.MethodPost, path: "/v1/obligations/" + obs[0].ID + "/validate",
			body:  marshalObj(t, billing.Decision{Decision: "maybe"}),
			token: adminToken, wantCode: http.StatusBadRequest,
		},
		{
			name:   "schedule fee mismatch",
			method: http.MethodPost, path: "/v1/enrollments/nope/schedule",
			body:  marshalObj(t, billing.NewSchedule{TotalFee: 50, PlanArity: 2, Method: billing.MethodCash}),
			token: adminToken, wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			server.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}
