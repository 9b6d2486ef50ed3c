package billing

import (
	"errors"

	"github.com/vince-duran/TPLearn-sub006/core"
)

// Installment is one planned slice of a tuition fee: an exact amount in whole
// pesos and a due-date offset in days from the enrollment date. The planner
// returns offsets rather than absolute dates so it stays pure and clock-free.
type Installment struct {
	Amount        int `json:"amount"`
	DueOffsetDays int `json:"due_offset_days"`
}

// Due-date offsets per plan arity.
var dueOffsets = map[int][]int{
	1: {0},
	2: {0, 14},
	3: {0, 14, 28},
}

var (
	errFeeNotPositive = errors.New("total fee must be a positive amount")
	errFeeBelowArity  = errors.New("total fee must cover at least one peso per installment")
	errBadPlanArity   = errors.New("plan arity must be 1, 2 or 3")
)

// PlanInstallments splits totalFee into planArity installments using exact
// remainder distribution: every installment gets totalFee/planArity and the
// first totalFee%planArity installments get one extra peso. The amounts always
// sum to totalFee exactly; no peso is gained or lost to rounding. Every
// installment carries a positive amount, so totalFee must be at least planArity.
func PlanInstallments(totalFee, planArity int) ([]Installment, error) {
	if totalFee <= 0 {
		return nil, core.NewValidationError(errFeeNotPositive, core.FieldError{Field: "total_fee", Error: errFeeNotPositive.Error()})
	}
	offsets, ok := dueOffsets[planArity]
	if !ok {
		return nil, core.NewValidationError(errBadPlanArity, core.FieldError{Field: "plan_arity", Error: errBadPlanArity.Error()})
	}
	if totalFee < planArity {
		return nil, core.NewValidationError(errFeeBelowArity, core.FieldError{Field: "total_fee", Error: errFeeBelowArity.Error()})
	}

	base := totalFee / planArity
	remainder := totalFee % planArity

	plan := make([]Installment, planArity)
	for i := range plan {
		amount := base
		if i < remainder {
			amount++
		}
		plan[i] = Installment{Amount: amount, DueOffsetDays: offsets[i]}
	}
	return plan, nil
}
