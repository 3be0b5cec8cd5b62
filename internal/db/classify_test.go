package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	plain := errors.New("connection reset by peer")
	outOfRange := &pgconn.PgError{Code: "22003", Message: "numeric field overflow"}

	tests := []struct {
		name     string
		err      error
		conflict bool
		unique   bool
	}{
		{name: "SerializationFailure", err: &pgconn.PgError{Code: "40001", Message: "could not serialize access"}, conflict: true},
		{name: "Deadlock", err: &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}, conflict: true},
		{name: "LockTimeout", err: &pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"}, conflict: true},
		{
			name:     "UniqueViolation",
			err:      &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "uq_bids_active_bidder"`},
			conflict: true,
			unique:   true,
		},
		{
			name:     "WrappedUniqueViolation",
			err:      fmt.Errorf("failed to create bid: %w", &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "uq_bids_active_bidder"`}),
			conflict: true,
			unique:   true,
		},
		{name: "NumericOverflow", err: outOfRange},
		{name: "WrappedNumericOverflow", err: fmt.Errorf("failed to update bid: %w", outOfRange)},
		{name: "Plain", err: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.unique, isUniqueViolation(tt.err))
			if !tt.conflict {
				assert.Equal(t, tt.err, got)
				assert.False(t, errors.Is(got, auctionerrors.ErrConflict))
				return
			}
			assert.ErrorIs(t, got, auctionerrors.ErrConflict)
			assert.Equal(t, auctionerrors.ErrConflict.Error(), got.Error())
			assert.NotContains(t, got.Error(), "uq_bids")
		})
	}
}
