package auctionerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"NotFound", ErrNotFound, "not_found"},
		{"WrappedForbidden", fmt.Errorf("cancel bid 3: %w", ErrForbidden), "forbidden"},
		{"Closed", fmt.Errorf("submit: %w", ErrAuctionClosed), "auction_closed"},
		{"TooLow", ErrBidTooLow, "bid_too_low"},
		{"InvalidStatus", ErrInvalidStatus, "invalid_status"},
		{"Conflict", fmt.Errorf("x: %w", fmt.Errorf("y: %w", ErrConflict)), "conflict"},
		{"EmailTaken", ErrEmailTaken, "email_taken"},
		{"Unknown", errors.New("connection reset"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}
