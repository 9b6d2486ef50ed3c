package tests

import (
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vince-duran/TPLearn-sub006/core"
	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

var (
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
)

func TestMain(m *testing.M) {
	conf = &core.Config{
		TestMode:  true,
		AppName:   "TPLearn",
		SecretKey: "test-secret-key",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
		},
		Billing: core.BillingConfig{LockTimeout: time.Second},
	}

	validate = validator.New()
	translator = core.NewTranslator()
	core.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)

	os.Exit(m.Run())
}
