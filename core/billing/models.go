package billing

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vince-duran/TPLearn-sub006/core"
)

// Obligation statuses. Validated and Rejected are terminal.
const (
	StatusPending           ObligationStatus = "pending"
	StatusPendingValidation ObligationStatus = "pending_validation"
	StatusValidated         ObligationStatus = "validated"
	StatusRejected          ObligationStatus = "rejected"

	// StatusOverdue survives in rows written before the derived-status
	// migration; the engine never writes it and treats it exactly like
	// StatusPending wherever it checks for unresolved rows.
	StatusOverdue ObligationStatus = "overdue"
)

// Enrollment statuses. Completed and Cancelled are terminal and set by
// administrative actions outside this engine.
const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentPaused    EnrollmentStatus = "paused"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Read-time display statuses, derived by DerivedStatus.
const (
	DisplayPending           DisplayStatus = "pending"
	DisplayDueToday          DisplayStatus = "due_today"
	DisplayOverdue           DisplayStatus = "overdue"
	DisplayPendingValidation DisplayStatus = "pending_validation"
	DisplayValidated         DisplayStatus = "validated"
	DisplayRejected          DisplayStatus = "rejected"
)

// Payment methods
const (
	MethodCash         = "cash"
	MethodGCash        = "gcash"
	MethodBankTransfer = "bank_transfer"
)

var AllMethods = []string{MethodCash, MethodGCash, MethodBankTransfer}

type (
	ObligationStatus string
	EnrollmentStatus string
	DisplayStatus    string
)

// Terminal reports whether no further automatic transition applies to s.
func (s ObligationStatus) Terminal() bool {
	return s == StatusValidated || s == StatusRejected
}

// Unresolved reports whether a payment is still owed against s.
func (s ObligationStatus) Unresolved() bool {
	return s == StatusPending || s == StatusPendingValidation || s == StatusOverdue
}

func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentCompleted || s == EnrollmentCancelled
}

// PaymentObligation is one scheduled installment (or the single full payment)
// owed against an Enrollment. Obligations are created once, in bulk, at
// enrollment time and never deleted; only Status, ReferenceNumber,
// ValidatedBy, ValidatedAt and Notes mutate thereafter.
type PaymentObligation struct {
	ID                string           `json:"id"`
	EnrollmentID      string           `json:"enrollment_id"`
	Amount            int              `json:"amount"` // whole pesos
	DueDate           time.Time        `json:"due_date"`
	InstallmentNumber int              `json:"installment_number"` // 1-based
	TotalInstallments int              `json:"total_installments"` // always materialized; 1 means full payment
	Status            ObligationStatus `json:"status"`
	Method            string           `json:"method"`
	ReferenceNumber   string           `json:"reference_number,omitempty"`
	ValidatedBy       string           `json:"validated_by,omitempty"`
	ValidatedAt       time.Time        `json:"validated_at,omitempty"` // UTC; zero until decided
	Notes             string           `json:"notes,omitempty"`
	CreatedAt         time.Time        `json:"created_at"` // UTC
	UpdatedAt         time.Time        `json:"updated_at"` // UTC
}

type Enrollment struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	ProgramID string           `json:"program_id"`
	TotalFee  int              `json:"total_fee"` // whole pesos
	Status    EnrollmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"` // UTC
	UpdatedAt time.Time        `json:"updated_at"` // UTC
}

// AuditEntry records one enrollment status transition and what triggered it.
type AuditEntry struct {
	ID           string           `json:"id"`
	EnrollmentID string           `json:"enrollment_id"`
	ObligationID string           `json:"obligation_id,omitempty"` // empty for sweep-less transitions
	OldStatus    EnrollmentStatus `json:"old_status"`
	NewStatus    EnrollmentStatus `json:"new_status"`
	Reason       string           `json:"reason"`
	At           time.Time        `json:"at"` // UTC
}

// Result is the outcome of a ledger mutation. NotifierWarning flags a partial
// success: the financial transition committed but the post-commit notification
// could not be delivered.
type Result struct {
	Obligation       PaymentObligation `json:"obligation"`
	EnrollmentStatus EnrollmentStatus  `json:"enrollment_status"`
	NotifierWarning  bool              `json:"notifier_warning,omitempty"`
}

// DerivedStatus is the single definition of the read-time obligation status
// shown to users. Overdue-ness is computed here, from the calendar, never
// stored.
func DerivedStatus(ob PaymentObligation, today time.Time) DisplayStatus {
	switch ob.Status {
	case StatusValidated:
		return DisplayValidated
	case StatusRejected:
		return DisplayRejected
	case StatusPendingValidation:
		return DisplayPendingValidation
	}

	due := dateOf(ob.DueDate)
	now := dateOf(today)
	switch {
	case due.Before(now):
		return DisplayOverdue
	case due.Equal(now):
		return DisplayDueToday
	default:
		return DisplayPending
	}
}

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewEnrollment contains information needed to enroll a student in a program
// together with the full payment schedule.
type NewEnrollment struct {
	StudentID string `json:"student_id" validate:"required"`
	ProgramID string `json:"program_id" validate:"required"`
	TotalFee  int    `json:"total_fee" validate:"required,gt=0"`
	PlanArity int    `json:"plan_arity" validate:"required,min=1,max=3"`
	Method    string `json:"method" validate:"required,paymethod"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.StudentID = core.CleanString(ne.StudentID)
	ne.ProgramID = core.CleanString(ne.ProgramID)
	ne.Method = core.CleanString(ne.Method, true /* lower */)
	return validate.Struct(ne)
}

// NewSchedule contains information needed to create the obligation set for an
// existing enrollment. TotalFee must match the enrollment's fee; it is passed
// explicitly so a stale caller fails loudly instead of splitting the wrong
// amount.
type NewSchedule struct {
	EnrollmentID string `json:"enrollment_id" validate:"required"`
	TotalFee     int    `json:"total_fee" validate:"required,gt=0"`
	PlanArity    int    `json:"plan_arity" validate:"required,min=1,max=3"`
	Method       string `json:"method" validate:"required,paymethod"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.EnrollmentID = core.CleanString(ns.EnrollmentID)
	ns.Method = core.CleanString(ns.Method, true /* lower */)
	return validate.Struct(ns)
}

// ProofSubmission attaches a payer's proof-of-payment reference to an
// obligation.
type ProofSubmission struct {
	ObligationID    string `json:"obligation_id" validate:"required"`
	ReferenceNumber string `json:"reference_number" validate:"required,min=6,max=64,refnum"`
}

func (ps *ProofSubmission) Validate(validate *validator.Validate) error {
	ps.ObligationID = core.CleanString(ps.ObligationID)
	ps.ReferenceNumber = core.CleanString(ps.ReferenceNumber)
	return validate.Struct(ps)
}

// Decision is an administrator's verdict on a submitted proof.
type Decision struct {
	ObligationID string           `json:"obligation_id" validate:"required"`
	ValidatorID  string           `json:"validator_id" validate:"required"`
	Decision     ObligationStatus `json:"decision" validate:"required,decision"`
	Notes        string           `json:"notes" validate:"omitempty,max=500"`
}

func (d *Decision) Validate(validate *validator.Validate) error {
	d.ObligationID = core.CleanString(d.ObligationID)
	d.ValidatorID = core.CleanString(d.ValidatorID)
	d.Notes = core.CleanString(d.Notes)
	return validate.Struct(d)
}

// ObligationView pairs a ledger row with its derived display status.
type ObligationView struct {
	PaymentObligation
	Display DisplayStatus `json:"display_status"`
}

// LedgerView is the full read model of an enrollment's payment ledger.
type LedgerView struct {
	Enrollment  Enrollment       `json:"enrollment"`
	Obligations []ObligationView `json:"obligations"`
	Audit       []AuditEntry     `json:"audit"`
}
