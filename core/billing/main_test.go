package billing_test

import (
	"os"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vince-duran/TPLearn-sub006/core"
	"github.com/vince-duran/TPLearn-sub006/core/billing"
	notifysvc "github.com/vince-duran/TPLearn-sub006/services/notify"
	inmemdb "github.com/vince-duran/TPLearn-sub006/storage/database/inmem"
	testutil "github.com/vince-duran/TPLearn-sub006/tests"
)

var (
	validate *validator.Validate
	conf     *core.Config
)

func TestMain(m *testing.M) {
	validate = validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)

	conf = &core.Config{
		TestMode: true,
		Billing:  core.BillingConfig{LockTimeout: time.Second},
	}

	os.Exit(m.Run())
}

func setup(t *testing.T) (*billing.Service, billing.Repository, *notifysvc.Recorder) {
	repo := inmemdb.NewBillingRepository(inmemdb.NewDB())
	recorder := new(notifysvc.Recorder)
	svc := billing.NewService(repo, recorder, testutil.NewLogger(t), validate, conf)
	return svc, repo, recorder
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	vErr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("error = %T (%v), want *core.ValidationError", err, err)
	}
	fields := make(map[string]string, len(vErr.Fields))
	for _, fErr := range vErr.Fields {
		fields[fErr.Field] = fErr.Error
	}
	return fields
}
