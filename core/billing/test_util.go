package billing

import (
	"context"
	"testing"
	"time"
)

// CreateTestEnrollment persists an enrollment with a freshly planned schedule
// and returns both. dueFrom anchors the schedule's due dates.
func CreateTestEnrollment(
	t *testing.T,
	repo Repository,
	studentID, programID string,
	totalFee, planArity int,
	status EnrollmentStatus,
	dueFrom time.Time,
) (Enrollment, []PaymentObligation) {
	t.Helper()

	plan, err := PlanInstallments(totalFee, planArity)
	if err != nil {
		t.Fatalf("PlanInstallments() failed: %v", err)
	}

	now := dueFrom.UTC()
	enr := Enrollment{
		ID:        "enr-" + studentID + "-" + programID,
		StudentID: studentID,
		ProgramID: programID,
		TotalFee:  totalFee,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	obs := buildSchedule(enr.ID, MethodGCash, plan, now)
	if err := repo.CreateEnrollment(context.Background(), enr, obs); err != nil {
		t.Fatalf("CreateEnrollment() failed: %v", err)
	}
	return enr, obs
}

// SetNowFunc overrides the engine clock for tests; the returned func restores
// it.
func SetNowFunc(now func() time.Time) (restore func()) {
	prev := nowFunc
	nowFunc = now
	return func() { nowFunc = prev }
}
