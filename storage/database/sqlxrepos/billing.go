package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

type billingRepository struct {
	db *sqlx.DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *sql.DB) *billingRepository {
	return &billingRepository{db: sqlx.NewDb(db, "postgres")}
}

// enrollmentRow / obligationRow map the domain models onto the schema;
// nullable columns use null/v8 types.
type (
	enrollmentRow struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		ProgramID string    `db:"program_id"`
		TotalFee  int       `db:"total_fee"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	obligationRow struct {
		ID                string      `db:"id"`
		EnrollmentID      string      `db:"enrollment_id"`
		Amount            int         `db:"amount"`
		DueDate           time.Time   `db:"due_date"`
		InstallmentNumber int         `db:"installment_number"`
		TotalInstallments int         `db:"total_installments"`
		Status            string      `db:"status"`
		Method            null.String `db:"method"`
		ReferenceNumber   null.String `db:"reference_number"`
		ValidatedBy       null.String `db:"validated_by"`
		ValidatedAt       null.Time   `db:"validated_at"`
		Notes             null.String `db:"notes"`
		CreatedAt         time.Time   `db:"created_at"`
		UpdatedAt         time.Time   `db:"updated_at"`
	}

	auditRow struct {
		ID           string      `db:"id"`
		EnrollmentID string      `db:"enrollment_id"`
		ObligationID null.String `db:"obligation_id"`
		OldStatus    string      `db:"old_status"`
		NewStatus    string      `db:"new_status"`
		Reason       string      `db:"reason"`
		CreatedAt    time.Time   `db:"created_at"`
	}
)

func packEnrollment(enr billing.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:        enr.ID,
		StudentID: enr.StudentID,
		ProgramID: enr.ProgramID,
		TotalFee:  enr.TotalFee,
		Status:    string(enr.Status),
		CreatedAt: enr.CreatedAt.UTC(),
		UpdatedAt: enr.UpdatedAt.UTC(),
	}
}

func unpackEnrollment(row enrollmentRow) billing.Enrollment {
	return billing.Enrollment{
		ID:        row.ID,
		StudentID: row.StudentID,
		ProgramID: row.ProgramID,
		TotalFee:  row.TotalFee,
		Status:    billing.EnrollmentStatus(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func packObligation(ob billing.PaymentObligation) obligationRow {
	return obligationRow{
		ID:                ob.ID,
		EnrollmentID:      ob.EnrollmentID,
		Amount:            ob.Amount,
		DueDate:           ob.DueDate.UTC(),
		InstallmentNumber: ob.InstallmentNumber,
		TotalInstallments: ob.TotalInstallments,
		Status:            string(ob.Status),
		Method:            null.NewString(ob.Method, ob.Method != ""),
		ReferenceNumber:   null.NewString(ob.ReferenceNumber, ob.ReferenceNumber != ""),
		ValidatedBy:       null.NewString(ob.ValidatedBy, ob.ValidatedBy != ""),
		ValidatedAt:       null.NewTime(ob.ValidatedAt.UTC(), !ob.ValidatedAt.IsZero()),
		Notes:             null.NewString(ob.Notes, ob.Notes != ""),
		CreatedAt:         ob.CreatedAt.UTC(),
		UpdatedAt:         ob.UpdatedAt.UTC(),
	}
}

func unpackObligation(row obligationRow) billing.PaymentObligation {
	return billing.PaymentObligation{
		ID:                row.ID,
		EnrollmentID:      row.EnrollmentID,
		Amount:            row.Amount,
		DueDate:           row.DueDate,
		InstallmentNumber: row.InstallmentNumber,
		TotalInstallments: row.TotalInstallments,
		Status:            billing.ObligationStatus(row.Status),
		Method:            row.Method.String,
		ReferenceNumber:   row.ReferenceNumber.String,
		ValidatedBy:       row.ValidatedBy.String,
		ValidatedAt:       row.ValidatedAt.Time,
		Notes:             row.Notes.String,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func unpackObligations(rows []obligationRow) []billing.PaymentObligation {
	obs := make([]billing.PaymentObligation, 0, len(rows))
	for _, row := range rows {
		obs = append(obs, unpackObligation(row))
	}
	return obs
}

const (
	insertEnrollmentStmt = `
		INSERT INTO enrollment (id, student_id, program_id, total_fee, status, created_at, updated_at)
		VALUES (:id, :student_id, :program_id, :total_fee, :status, :created_at, :updated_at)`

	insertObligationStmt = `
		INSERT INTO payment_obligation
			(id, enrollment_id, amount, due_date, installment_number, total_installments,
			 status, method, reference_number, validated_by, validated_at, notes, created_at, updated_at)
		VALUES
			(:id, :enrollment_id, :amount, :due_date, :installment_number, :total_installments,
			 :status, :method, :reference_number, :validated_by, :validated_at, :notes, :created_at, :updated_at)`

	updateObligationStmt = `
		UPDATE payment_obligation
		SET status = :status, reference_number = :reference_number, validated_by = :validated_by,
			validated_at = :validated_at, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
)

// trapNoRowsErr maps psql "no rows" to the domain not-found error.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapLockErr maps lock_not_available (NOWAIT) and deadline errors to the
// retryable contention error.
func trapLockErr(err error, msg string) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == "55P03" {
		return billing.ErrContention
	}
	if errors.Cause(err) == context.DeadlineExceeded {
		return billing.ErrContention
	}
	return errors.Wrap(err, msg)
}

func (repo *billingRepository) CreateEnrollment(ctx context.Context, enr billing.Enrollment, obs []billing.PaymentObligation) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning enrollment tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.NamedExecContext(ctx, insertEnrollmentStmt, packEnrollment(enr)); err != nil {
		return errors.Wrap(err, "inserting enrollment")
	}
	if err = insertObligations(ctx, tx, obs); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing enrollment")
}

func (repo *billingRepository) CreateObligations(ctx context.Context, enrollmentID string, obs []billing.PaymentObligation) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning schedule tx")
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err = tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM enrollment WHERE id = $1)", enrollmentID); err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !exists {
		return billing.ErrEnrollmentNotFound
	}
	if err = insertObligations(ctx, tx, obs); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing schedule")
}

func insertObligations(ctx context.Context, tx *sqlx.Tx, obs []billing.PaymentObligation) error {
	for _, ob := range obs {
		if _, err := tx.NamedExecContext(ctx, insertObligationStmt, packObligation(ob)); err != nil {
			return errors.Wrapf(err, "inserting obligation %d/%d", ob.InstallmentNumber, ob.TotalInstallments)
		}
	}
	return nil
}

func (repo *billingRepository) GetEnrollment(ctx context.Context, id string) (billing.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM enrollment WHERE id = $1", id); err != nil {
		return billing.Enrollment{}, trapNoRowsErr(err, billing.ErrEnrollmentNotFound, "getting enrollment")
	}
	return unpackEnrollment(row), nil
}

func (repo *billingRepository) GetObligation(ctx context.Context, id string) (billing.PaymentObligation, error) {
	var row obligationRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM payment_obligation WHERE id = $1", id); err != nil {
		return billing.PaymentObligation{}, trapNoRowsErr(err, billing.ErrNotFound, "getting obligation")
	}
	return unpackObligation(row), nil
}

func (repo *billingRepository) QueryEnrollmentObligations(ctx context.Context, enrollmentID string) ([]billing.PaymentObligation, error) {
	var rows []obligationRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM payment_obligation WHERE enrollment_id = $1 ORDER BY installment_number", enrollmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying obligations")
	}
	return unpackObligations(rows), nil
}

func (repo *billingRepository) QueryEnrollmentAudit(ctx context.Context, enrollmentID string) ([]billing.AuditEntry, error) {
	var rows []auditRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM enrollment_audit WHERE enrollment_id = $1 ORDER BY created_at", enrollmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying audit trail")
	}

	entries := make([]billing.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, billing.AuditEntry{
			ID:           row.ID,
			EnrollmentID: row.EnrollmentID,
			ObligationID: row.ObligationID.String,
			OldStatus:    billing.EnrollmentStatus(row.OldStatus),
			NewStatus:    billing.EnrollmentStatus(row.NewStatus),
			Reason:       row.Reason,
			At:           row.CreatedAt,
		})
	}
	return entries, nil
}

func (repo *billingRepository) QueryActiveEnrollments(ctx context.Context) ([]billing.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM enrollment WHERE status = $1 ORDER BY created_at", string(billing.EnrollmentActive))
	if err != nil {
		return nil, errors.Wrap(err, "querying active enrollments")
	}

	enrs := make([]billing.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, unpackEnrollment(row))
	}
	return enrs, nil
}

func (repo *billingRepository) Atomic(ctx context.Context, fn func(tx billing.Tx) error) error {
	sqlxTx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = sqlxTx.Rollback() }()

	if err = fn(&billingTx{ctx: ctx, tx: sqlxTx}); err != nil {
		return err
	}
	return errors.Wrap(sqlxTx.Commit(), "committing tx")
}

type billingTx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

var _ billing.Tx = (*billingTx)(nil)

func (t *billingTx) LockObligation(id string) (billing.PaymentObligation, error) {
	var row obligationRow
	err := t.tx.GetContext(t.ctx, &row, "SELECT * FROM payment_obligation WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return billing.PaymentObligation{}, billing.ErrNotFound
		}
		return billing.PaymentObligation{}, trapLockErr(err, "locking obligation")
	}
	return unpackObligation(row), nil
}

func (t *billingTx) LockEnrollment(id string) (billing.Enrollment, error) {
	var row enrollmentRow
	err := t.tx.GetContext(t.ctx, &row, "SELECT * FROM enrollment WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return billing.Enrollment{}, billing.ErrEnrollmentNotFound
		}
		return billing.Enrollment{}, trapLockErr(err, "locking enrollment")
	}
	return unpackEnrollment(row), nil
}

func (t *billingTx) ObligationsByEnrollment(enrollmentID string) ([]billing.PaymentObligation, error) {
	var rows []obligationRow
	err := t.tx.SelectContext(t.ctx, &rows,
		"SELECT * FROM payment_obligation WHERE enrollment_id = $1 ORDER BY installment_number", enrollmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying obligations")
	}
	return unpackObligations(rows), nil
}

func (t *billingTx) UpdateObligation(ob billing.PaymentObligation) error {
	res, err := t.tx.NamedExecContext(t.ctx, updateObligationStmt, packObligation(ob))
	if err != nil {
		return errors.Wrap(err, "updating obligation")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.ErrNotFound
	}
	return nil
}

func (t *billingTx) UpdateEnrollmentStatus(id string, status billing.EnrollmentStatus, updatedAt time.Time) error {
	res, err := t.tx.ExecContext(t.ctx,
		"UPDATE enrollment SET status = $1, updated_at = $2 WHERE id = $3", string(status), updatedAt.UTC(), id)
	if err != nil {
		return errors.Wrap(err, "updating enrollment status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return billing.ErrEnrollmentNotFound
	}
	return nil
}

func (t *billingTx) AppendAudit(entry billing.AuditEntry) error {
	row := auditRow{
		ID:           entry.ID,
		EnrollmentID: entry.EnrollmentID,
		ObligationID: null.NewString(entry.ObligationID, entry.ObligationID != ""),
		OldStatus:    string(entry.OldStatus),
		NewStatus:    string(entry.NewStatus),
		Reason:       entry.Reason,
		CreatedAt:    entry.At.UTC(),
	}
	_, err := t.tx.NamedExecContext(t.ctx, `
		INSERT INTO enrollment_audit (id, enrollment_id, obligation_id, old_status, new_status, reason, created_at)
		VALUES (:id, :enrollment_id, :obligation_id, :old_status, :new_status, :reason, :created_at)`, row)
	return errors.Wrap(err, "appending audit entry")
}
