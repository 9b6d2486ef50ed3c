package inmemdb

import (
	"context"

	"github.com/vince-duran/TPLearn-sub006/core/billing"
)

// DB is an in-memory stand-in for the relational store. A single buffered
// channel serializes every operation, which gives the same observable
// contract as row locking: an Atomic body owns the store exclusively until it
// returns, and a waiter whose context expires first fails with ErrContention.
type DB struct {
	lock chan struct{}

	enrollments map[string]*billing.Enrollment
	obligations map[string]*billing.PaymentObligation
	audit       []billing.AuditEntry
}

func NewDB() *DB {
	return &DB{
		lock:        make(chan struct{}, 1),
		enrollments: make(map[string]*billing.Enrollment),
		obligations: make(map[string]*billing.PaymentObligation),
	}
}

// acquire takes the store lock, honoring ctx cancellation.
func (db *DB) acquire(ctx context.Context) (release func(), err error) {
	select {
	case db.lock <- struct{}{}:
		return func() { <-db.lock }, nil
	case <-ctx.Done():
		return nil, billing.ErrContention
	}
}
