package billing

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/vince-duran/TPLearn-sub006/core"
)

var (
	// custom validation tags & texts
	payMethodTag  = "paymethod"
	payMethodText = "invalid payment method"

	decisionTag  = "decision"
	decisionText = "decision must be either 'validated' or 'rejected'"
)

// InitValidators registers billing-specific validators. Call after
// core.InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(payMethodTag, payMethodValidation)
	core.RegisterCustomTranslation(validate, translator, payMethodTag, payMethodText)

	_ = validate.RegisterValidation(decisionTag, decisionValidation)
	core.RegisterCustomTranslation(validate, translator, decisionTag, decisionText)
}

func payMethodValidation(fl validator.FieldLevel) bool {
	method := fl.Field().String()
	for _, m := range AllMethods {
		if m == method {
			return true
		}
	}
	return false
}

func decisionValidation(fl validator.FieldLevel) bool {
	switch ObligationStatus(fl.Field().String()) {
	case StatusValidated, StatusRejected:
		return true
	}
	return false
}
