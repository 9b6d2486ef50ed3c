package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vince-duran/TPLearn-sub006/core"
)

type SweepResult struct {
	EnrollmentsPaused int `json:"enrollments_paused"`
}

// SweepOverdue pauses every Active multi-installment enrollment holding at
// least one unresolved obligation due before today. Each enrollment is swept
// in its own transaction; an enrollment that is no longer Active when its row
// lock is acquired is skipped, which makes a same-day re-run produce zero
// transitions, zero duplicate audit entries and zero notifications.
//
// Single-installment enrollments are exempt: an overdue full payment is a
// collections concern, not a pause trigger, since there is no partial progress
// to protect. The periodic trigger lives outside this engine (cron, CLI).
func (svc *Service) SweepOverdue(ctx context.Context, today time.Time) (SweepResult, error) {
	enrs, err := svc.repo.QueryActiveEnrollments(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, candidate := range enrs {
		paused, err := svc.sweepEnrollment(ctx, candidate.ID, today)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("sweeping enrollment %s: %v", candidate.ID, err), err)
			continue
		}
		if !paused {
			continue
		}
		res.EnrollmentsPaused++

		svc.notify(ctx, core.Notification{
			UserID: candidate.StudentID,
			Kind:   core.NotifyEnrollmentStatusChanged,
			Payload: map[string]interface{}{
				"enrollment_id": candidate.ID,
				"status":        string(EnrollmentPaused),
			},
		})
	}
	return res, nil
}

func (svc *Service) sweepEnrollment(ctx context.Context, id string, today time.Time) (paused bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, svc.conf.Billing.LockTimeout)
	defer cancel()

	err = svc.repo.Atomic(ctx, func(tx Tx) error {
		enr, err := tx.LockEnrollment(id)
		if err != nil {
			return err
		}
		if enr.Status != EnrollmentActive {
			return nil // already paused, or moved on; nothing to do
		}

		obs, err := tx.ObligationsByEnrollment(enr.ID)
		if err != nil {
			return err
		}
		if len(obs) == 0 || obs[0].TotalInstallments <= 1 {
			return nil // full payments are exempt
		}

		overdue, ok := firstOverdue(obs, today)
		if !ok {
			return nil
		}

		now := nowFunc().UTC()
		if err = tx.UpdateEnrollmentStatus(enr.ID, EnrollmentPaused, now); err != nil {
			return err
		}
		if err = tx.AppendAudit(AuditEntry{
			ID:           uuid.New().String(),
			EnrollmentID: enr.ID,
			ObligationID: overdue.ID,
			OldStatus:    enr.Status,
			NewStatus:    EnrollmentPaused,
			Reason: fmt.Sprintf("installment %d/%d unpaid since %s",
				overdue.InstallmentNumber, overdue.TotalInstallments, dateOf(overdue.DueDate).Format("2006-01-02")),
			At: now,
		}); err != nil {
			return err
		}
		paused = true
		return nil
	})
	return paused, err
}

// firstOverdue returns the earliest-due unresolved obligation strictly past
// its due date.
func firstOverdue(obs []PaymentObligation, today time.Time) (PaymentObligation, bool) {
	day := dateOf(today)
	for _, ob := range obs {
		if ob.Status.Unresolved() && dateOf(ob.DueDate).Before(day) {
			return ob, true
		}
	}
	return PaymentObligation{}, false
}
