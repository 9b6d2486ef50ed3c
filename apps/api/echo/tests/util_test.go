package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echoapi "github.com/vince-duran/TPLearn-sub006/apps/api/echo"
	"github.com/vince-duran/TPLearn-sub006/core/billing"
	notifysvc "github.com/vince-duran/TPLearn-sub006/services/notify"
	inmemdb "github.com/vince-duran/TPLearn-sub006/storage/database/inmem"
	testutil "github.com/vince-duran/TPLearn-sub006/tests"
)

func setup(t *testing.T) (*echoapi.Server, billing.Repository) {
	repo := inmemdb.NewBillingRepository(inmemdb.NewDB())
	svc := billing.NewService(repo, new(notifysvc.Recorder), testutil.NewLogger(t), validate, conf)

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     testutil.NewLogger(t),
			BillingSvc: svc,
			Validate:   validate,
			Translator: translator,
		},
	)
	return server, repo
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, validatorID string, isAdmin bool) string {
	claims := echoapi.GetValidatorClaims(conf, validatorID, "Validator", isAdmin)
	token, err := echoapi.GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshalBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshalBody() failed: %v\nbody: %s", err, rec.Body.String())
	}
}
