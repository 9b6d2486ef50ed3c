package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

type billingRepository struct {
	db *DB
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) *billingRepository {
	return &billingRepository{db: db}
}

func (repo *billingRepository) CreateEnrollment(ctx context.Context, enr billing.Enrollment, obs []billing.PaymentObligation) error {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	repo.db.enrollments[enr.ID] = &enr
	for _, ob := range obs {
		ob := ob
		repo.db.obligations[ob.ID] = &ob
	}
	return nil
}

func (repo *billingRepository) CreateObligations(ctx context.Context, enrollmentID string, obs []billing.PaymentObligation) error {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if _, ok := repo.db.enrollments[enrollmentID]; !ok {
		return billing.ErrEnrollmentNotFound
	}
	for _, ob := range obs {
		ob := ob
		repo.db.obligations[ob.ID] = &ob
	}
	return nil
}

func (repo *billingRepository) GetEnrollment(ctx context.Context, id string) (billing.Enrollment, error) {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return billing.Enrollment{}, err
	}
	defer release()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return billing.Enrollment{}, billing.ErrEnrollmentNotFound
}

func (repo *billingRepository) GetObligation(ctx context.Context, id string) (billing.PaymentObligation, error) {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return billing.PaymentObligation{}, err
	}
	defer release()

	if ob, ok := repo.db.obligations[id]; ok {
		return *ob, nil
	}
	return billing.PaymentObligation{}, billing.ErrNotFound
}

func (repo *billingRepository) QueryEnrollmentObligations(ctx context.Context, enrollmentID string) ([]billing.PaymentObligation, error) {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return obligationsOf(repo.db, enrollmentID), nil
}

func (repo *billingRepository) QueryEnrollmentAudit(ctx context.Context, enrollmentID string) ([]billing.AuditEntry, error) {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	entries := make([]billing.AuditEntry, 0)
	for _, e := range repo.db.audit {
		if e.EnrollmentID == enrollmentID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (repo *billingRepository) QueryActiveEnrollments(ctx context.Context) ([]billing.Enrollment, error) {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	enrs := make([]billing.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.Status == billing.EnrollmentActive {
			enrs = append(enrs, *enr)
		}
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].ID < enrs[j].ID })
	return enrs, nil
}

func (repo *billingRepository) Atomic(ctx context.Context, fn func(tx billing.Tx) error) error {
	release, err := repo.db.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx := &billingTx{db: repo.db}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	tx.commit()
	return nil
}

// billingTx buffers mutations and applies them on commit, so a failed Atomic
// body leaves the store untouched.
type billingTx struct {
	db      *DB
	pending []func(db *DB)
}

func (tx *billingTx) commit() {
	for _, apply := range tx.pending {
		apply(tx.db)
	}
	tx.pending = nil
}

func (tx *billingTx) rollback() { tx.pending = nil }

func (tx *billingTx) LockObligation(id string) (billing.PaymentObligation, error) {
	if ob, ok := tx.db.obligations[id]; ok {
		return *ob, nil
	}
	return billing.PaymentObligation{}, billing.ErrNotFound
}

func (tx *billingTx) LockEnrollment(id string) (billing.Enrollment, error) {
	if enr, ok := tx.db.enrollments[id]; ok {
		return *enr, nil
	}
	return billing.Enrollment{}, billing.ErrEnrollmentNotFound
}

func (tx *billingTx) ObligationsByEnrollment(enrollmentID string) ([]billing.PaymentObligation, error) {
	return obligationsOf(tx.db, enrollmentID), nil
}

func (tx *billingTx) UpdateObligation(ob billing.PaymentObligation) error {
	if _, ok := tx.db.obligations[ob.ID]; !ok {
		return billing.ErrNotFound
	}
	tx.pending = append(tx.pending, func(db *DB) { db.obligations[ob.ID] = &ob })
	return nil
}

func (tx *billingTx) UpdateEnrollmentStatus(id string, status billing.EnrollmentStatus, updatedAt time.Time) error {
	if _, ok := tx.db.enrollments[id]; !ok {
		return billing.ErrEnrollmentNotFound
	}
	tx.pending = append(tx.pending, func(db *DB) {
		db.enrollments[id].Status = status
		db.enrollments[id].UpdatedAt = updatedAt
	})
	return nil
}

func (tx *billingTx) AppendAudit(entry billing.AuditEntry) error {
	tx.pending = append(tx.pending, func(db *DB) { db.audit = append(db.audit, entry) })
	return nil
}

func obligationsOf(db *DB, enrollmentID string) []billing.PaymentObligation {
	obs := make([]billing.PaymentObligation, 0)
	for _, ob := range db.obligations {
		if ob.EnrollmentID == enrollmentID {
			obs = append(obs, *ob)
		}
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].InstallmentNumber < obs[j].InstallmentNumber })
	return obs
}
