package billing

import "fmt"

// nextStatus applies the enrollment lifecycle rules to a just-decided
// obligation and returns the status the enrollment should move to, with the
// audit reason. changed is false when no transition applies.
//
// Rules, in order:
//  1. Activation: a Pending enrollment becomes Active when installment #1 is
//     validated (a full single payment is installment 1 of 1, so the rule is
//     uniform across plan arities).
//  2. Reactivation: a Paused enrollment becomes Active when any obligation is
//     validated; paying any outstanding installment lifts a pause.
//  3. Validating a non-first installment of an already-Active enrollment is a
//     no-op.
//  4. A rejection never lowers the enrollment status on its own; only the
//     overdue sweep pauses.
//
// The function depends only on the current statuses, never on history, so
// redundant re-evaluation is safe.
func nextStatus(enr Enrollment, ob PaymentObligation) (status EnrollmentStatus, reason string, changed bool) {
	if ob.Status != StatusValidated {
		return enr.Status, "", false
	}

	switch enr.Status {
	case EnrollmentPending:
		if ob.InstallmentNumber == 1 {
			return EnrollmentActive, fmt.Sprintf("installment %d/%d validated", ob.InstallmentNumber, ob.TotalInstallments), true
		}
	case EnrollmentPaused:
		return EnrollmentActive, fmt.Sprintf("installment %d/%d validated", ob.InstallmentNumber, ob.TotalInstallments), true
	}
	return enr.Status, "", false
}
