package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vince-duran/TPLearn-sub006/core"
)

var (
	// errors
	ErrNotFound           = errors.New("payment obligation not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyProcessed   = errors.New("payment obligation has already been processed")
	ErrContention         = errors.New("record is locked by another operation, try again")
	ErrScheduleExists     = errors.New("enrollment already has a payment schedule")
)

var nowFunc = time.Now // mockable

type (
	// Tx is the set of operations available inside one repository
	// transaction. Lock* methods return the current row and guarantee no
	// other caller can mutate it until the transaction ends; a lock that
	// cannot be acquired within the caller's deadline fails with
	// ErrContention.
	Tx interface {
		LockObligation(id string) (PaymentObligation, error)
		LockEnrollment(id string) (Enrollment, error)
		ObligationsByEnrollment(enrollmentID string) ([]PaymentObligation, error)
		UpdateObligation(ob PaymentObligation) error
		UpdateEnrollmentStatus(id string, status EnrollmentStatus, updatedAt time.Time) error
		AppendAudit(entry AuditEntry) error
	}

	Repository interface {
		// CreateEnrollment persists an enrollment together with its full
		// obligation set in one atomic operation: all rows exist or none do.
		CreateEnrollment(ctx context.Context, enr Enrollment, obs []PaymentObligation) error
		// CreateObligations persists the obligation set for an existing
		// enrollment atomically. Obligations are never deleted once created.
		CreateObligations(ctx context.Context, enrollmentID string, obs []PaymentObligation) error
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		GetObligation(ctx context.Context, id string) (PaymentObligation, error)
		// QueryEnrollmentObligations returns an enrollment's obligations
		// ordered by installment number.
		QueryEnrollmentObligations(ctx context.Context, enrollmentID string) ([]PaymentObligation, error)
		QueryEnrollmentAudit(ctx context.Context, enrollmentID string) ([]AuditEntry, error)
		// QueryActiveEnrollments returns the sweep candidates.
		QueryActiveEnrollments(ctx context.Context) ([]Enrollment, error)
		// Atomic runs fn inside one transaction; fn returning an error rolls
		// every mutation back.
		Atomic(ctx context.Context, fn func(tx Tx) error) error
	}

	Service struct {
		repo     Repository
		notifier core.Notifier
		logger   core.Logger
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(repo Repository, notifier core.Notifier, logger core.Logger, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		validate: validate,
		conf:     conf,
	}
}

// buildSchedule materializes a plan into obligation rows due from today.
func buildSchedule(enrollmentID, method string, plan []Installment, now time.Time) []PaymentObligation {
	today := dateOf(now)
	obs := make([]PaymentObligation, len(plan))
	for i, inst := range plan {
		obs[i] = PaymentObligation{
			ID:                uuid.New().String(),
			EnrollmentID:      enrollmentID,
			Amount:            inst.Amount,
			DueDate:           today.AddDate(0, 0, inst.DueOffsetDays),
			InstallmentNumber: i + 1,
			TotalInstallments: len(plan),
			Status:            StatusPending,
			Method:            method,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
	}
	return obs
}

// Enroll creates a Pending enrollment together with its full payment schedule
// in one atomic operation. Capacity and duplicate-enrollment checks happen
// upstream.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, []PaymentObligation, error) {
	if err := ne.Validate(svc.validate); err != nil {
		return Enrollment{}, nil, err
	}

	plan, err := PlanInstallments(ne.TotalFee, ne.PlanArity)
	if err != nil {
		return Enrollment{}, nil, err
	}

	now := nowFunc().UTC()
	enr := Enrollment{
		ID:        uuid.New().String(),
		StudentID: ne.StudentID,
		ProgramID: ne.ProgramID,
		TotalFee:  ne.TotalFee,
		Status:    EnrollmentPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	obs := buildSchedule(enr.ID, ne.Method, plan, now)

	if err := svc.repo.CreateEnrollment(ctx, enr, obs); err != nil {
		return Enrollment{}, nil, err
	}
	return enr, obs, nil
}

// CreateObligationSchedule plans and persists the obligation set for an
// existing enrollment. It fails with a ValidationError when the fee does not
// match the enrollment or a schedule already exists.
func (svc *Service) CreateObligationSchedule(ctx context.Context, ns NewSchedule) ([]PaymentObligation, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return nil, err
	}

	enr, err := svc.repo.GetEnrollment(ctx, ns.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if ns.TotalFee != enr.TotalFee {
		err := fmt.Errorf("total fee %d does not match the enrollment fee %d", ns.TotalFee, enr.TotalFee)
		return nil, core.NewValidationError(err, core.FieldError{Field: "total_fee", Error: err.Error()})
	}

	existing, err := svc.repo.QueryEnrollmentObligations(ctx, ns.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, core.NewValidationError(ErrScheduleExists, core.FieldError{Field: "enrollment_id", Error: ErrScheduleExists.Error()})
	}

	plan, err := PlanInstallments(ns.TotalFee, ns.PlanArity)
	if err != nil {
		return nil, err
	}

	obs := buildSchedule(enr.ID, ns.Method, plan, nowFunc().UTC())
	if err := svc.repo.CreateObligations(ctx, enr.ID, obs); err != nil {
		return nil, err
	}
	return obs, nil
}

// SubmitProof attaches a payer's reference number to an obligation and moves
// it to PendingValidation. Resubmission overwrites a previous reference; after
// a rejection the old rejection notes are cleared only once the new reference
// is recorded. A validated obligation fails with ErrAlreadyProcessed.
func (svc *Service) SubmitProof(ctx context.Context, ps ProofSubmission) (Result, error) {
	if err := ps.Validate(svc.validate); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, svc.conf.Billing.LockTimeout)
	defer cancel()

	var ob PaymentObligation
	err := svc.repo.Atomic(ctx, func(tx Tx) error {
		var err error
		if ob, err = tx.LockObligation(ps.ObligationID); err != nil {
			return err
		}
		if ob.Status == StatusValidated {
			return ErrAlreadyProcessed
		}

		wasRejected := ob.Status == StatusRejected
		ob.ReferenceNumber = ps.ReferenceNumber
		if wasRejected {
			ob.Notes = ""
		}
		ob.Status = StatusPendingValidation
		ob.UpdatedAt = nowFunc().UTC()
		return tx.UpdateObligation(ob)
	})
	if err != nil {
		return Result{}, err
	}

	enr, err := svc.repo.GetEnrollment(ctx, ob.EnrollmentID)
	if err != nil {
		return Result{}, err
	}
	return Result{Obligation: ob, EnrollmentStatus: enr.Status}, nil
}

// Validate applies an administrator's decision to an obligation at most once.
// The check-then-set runs under an exclusive row lock inside one transaction,
// together with the enrollment lifecycle re-evaluation and the audit entry;
// two racing calls end with exactly one decided obligation and one
// ErrAlreadyProcessed. The notification fires only after the transaction has
// committed; its failure is reported as Result.NotifierWarning, never as a
// rollback.
func (svc *Service) Validate(ctx context.Context, d Decision) (Result, error) {
	if err := d.Validate(svc.validate); err != nil {
		return Result{}, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, svc.conf.Billing.LockTimeout)
	defer cancel()

	var (
		ob      PaymentObligation
		enr     Enrollment
		changed bool
	)
	err := svc.repo.Atomic(lockCtx, func(tx Tx) error {
		var err error
		if ob, err = tx.LockObligation(d.ObligationID); err != nil {
			return err
		}
		if !ob.Status.Unresolved() {
			return ErrAlreadyProcessed
		}

		now := nowFunc().UTC()
		ob.Status = d.Decision
		ob.ValidatedBy = d.ValidatorID
		ob.ValidatedAt = now
		if d.Notes != "" {
			ob.Notes = d.Notes
		}
		ob.UpdatedAt = now
		if err = tx.UpdateObligation(ob); err != nil {
			return err
		}

		if enr, err = tx.LockEnrollment(ob.EnrollmentID); err != nil {
			return err
		}
		var status EnrollmentStatus
		var reason string
		if status, reason, changed = nextStatus(enr, ob); !changed {
			return nil
		}
		if err = tx.UpdateEnrollmentStatus(enr.ID, status, now); err != nil {
			return err
		}
		if err = tx.AppendAudit(AuditEntry{
			ID:           uuid.New().String(),
			EnrollmentID: enr.ID,
			ObligationID: ob.ID,
			OldStatus:    enr.Status,
			NewStatus:    status,
			Reason:       reason,
			At:           now,
		}); err != nil {
			return err
		}
		enr.Status = status
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	// post-commit, best-effort
	warning := !svc.notify(ctx, core.Notification{
		UserID: enr.StudentID,
		Kind:   core.NotifyObligationDecided,
		Payload: map[string]interface{}{
			"obligation_id":      ob.ID,
			"decision":           string(ob.Status),
			"amount":             ob.Amount,
			"installment_number": ob.InstallmentNumber,
			"total_installments": ob.TotalInstallments,
			"reference_number":   ob.ReferenceNumber,
			"notes":              ob.Notes,
		},
	})
	if changed {
		if !svc.notify(ctx, core.Notification{
			UserID: enr.StudentID,
			Kind:   core.NotifyEnrollmentStatusChanged,
			Payload: map[string]interface{}{
				"enrollment_id": enr.ID,
				"status":        string(enr.Status),
			},
		}) {
			warning = true
		}
	}

	return Result{Obligation: ob, EnrollmentStatus: enr.Status, NotifierWarning: warning}, nil
}

// notify delivers n and reports whether it was sent; failures are logged only.
func (svc *Service) notify(ctx context.Context, n core.Notification) bool {
	sent, err := svc.notifier.Notify(ctx, n)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("notifying %s of %s: %v", n.UserID, n.Kind, err), err)
		return false
	}
	if !sent {
		svc.logger.Warn(fmt.Sprintf("notification %s to %s was not sent", n.Kind, n.UserID))
	}
	return sent
}

// Ledger returns the full read model of an enrollment's payment ledger with
// derived display statuses.
func (svc *Service) Ledger(ctx context.Context, enrollmentID string) (LedgerView, error) {
	enr, err := svc.repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return LedgerView{}, err
	}
	obs, err := svc.repo.QueryEnrollmentObligations(ctx, enrollmentID)
	if err != nil {
		return LedgerView{}, err
	}
	audit, err := svc.repo.QueryEnrollmentAudit(ctx, enrollmentID)
	if err != nil {
		return LedgerView{}, err
	}

	today := nowFunc().UTC()
	views := make([]ObligationView, 0, len(obs))
	for _, ob := range obs {
		views = append(views, ObligationView{PaymentObligation: ob, Display: DerivedStatus(ob, today)})
	}
	return LedgerView{Enrollment: enr, Obligations: views, Audit: audit}, nil
}
