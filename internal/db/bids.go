package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const bidColumns = "id, auction_id, bidder_id, max_amount, status, settled_amount, notes, created_at, updated_at"

func scanBid(row pgx.Row) (*models.Bid, error) {
	bid := &models.Bid{}
	err := row.Scan(&bid.ID, &bid.AuctionID, &bid.BidderID, &bid.MaxAmount, &bid.Status,
		&bid.SettledAmount, &bid.Notes, &bid.CreatedAt, &bid.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// SubmitBid creates the bidder's live bid on an auction or raises the one that
// already exists. The auction row is locked for the whole transaction, so
// submissions for one auction are serialized and the end time is evaluated
// after the lock is held. created reports whether a new row was inserted.
func (db *DB) SubmitBid(ctx context.Context, auctionID, bidderID int64, amount decimal.Decimal) (bid *models.Bid, created bool, err error) {
	var closed bool

	err = db.inTx(ctx, func(tx pgx.Tx) error {
		var (
			startingBid decimal.Decimal
			endsAt      time.Time
			status      models.AuctionStatus
		)
		err := tx.QueryRow(ctx,
			"SELECT starting_bid, ends_at, status FROM auctions WHERE id = $1 AND visible FOR UPDATE",
			auctionID).Scan(&startingBid, &endsAt, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("auction %d: %w", auctionID, auctionerrors.ErrNotFound)
			}
			return fmt.Errorf("failed to lock auction: %w", err)
		}

		auction := models.Auction{EndsAt: endsAt, Status: status}
		if !auction.AcceptsBidsAt(db.now()) {
			if status == models.AuctionOpen {
				if _, err := tx.Exec(ctx,
					"UPDATE auctions SET status = 'closed' WHERE id = $1 AND status = 'open'",
					auctionID); err != nil {
					return fmt.Errorf("failed to close auction: %w", err)
				}
			}
			closed = true
			return nil
		}

		if amount.LessThan(startingBid) {
			return fmt.Errorf("minimum bid is %s: %w", startingBid.StringFixed(2), auctionerrors.ErrBidTooLow)
		}
		if !models.AmountInRange(amount) {
			return fmt.Errorf("maximum bid is %s: %w", models.MaxAmount.StringFixed(2), auctionerrors.ErrInvalidInput)
		}

		now := db.now()

		var activeID int64
		err = tx.QueryRow(ctx,
			"SELECT id FROM bids WHERE auction_id = $1 AND bidder_id = $2 "+
				"AND status IN ('pending', 'tracking') FOR UPDATE",
			auctionID, bidderID).Scan(&activeID)
		switch {
		case err == nil:
			bid, err = scanBid(tx.QueryRow(ctx,
				"UPDATE bids SET max_amount = $1, updated_at = $2 WHERE id = $3 RETURNING "+bidColumns,
				amount, now, activeID))
			if err != nil {
				return fmt.Errorf("failed to update bid: %w", err)
			}
			return nil
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("failed to check active bid: %w", err)
		}

		var seen bool
		err = tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM bids WHERE auction_id = $1 AND bidder_id = $2)",
			auctionID, bidderID).Scan(&seen)
		if err != nil {
			return fmt.Errorf("failed to check bid history: %w", err)
		}

		bid, err = scanBid(tx.QueryRow(ctx,
			"INSERT INTO bids (auction_id, bidder_id, max_amount, status, created_at, updated_at) "+
				"VALUES ($1, $2, $3, 'pending', $4, $4) RETURNING "+bidColumns,
			auctionID, bidderID, amount, now))
		if err != nil {
			return fmt.Errorf("failed to create bid: %w", err)
		}
		created = true

		if !seen {
			if _, err := tx.Exec(ctx,
				"UPDATE auctions SET bids_received = bids_received + 1 WHERE id = $1",
				auctionID); err != nil {
				return fmt.Errorf("failed to count bid: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if closed {
		return nil, false, fmt.Errorf("auction %d: %w", auctionID, auctionerrors.ErrAuctionClosed)
	}
	return bid, created, nil
}

// CancelBid cancels a live bid if it belongs to the bidder
func (db *DB) CancelBid(ctx context.Context, bidID, bidderID int64) (*models.Bid, error) {
	var bid *models.Bid

	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var (
			owner  int64
			status models.BidStatus
		)
		err := tx.QueryRow(ctx,
			"SELECT bidder_id, status FROM bids WHERE id = $1 FOR UPDATE",
			bidID).Scan(&owner, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("bid %d: %w", bidID, auctionerrors.ErrNotFound)
			}
			return fmt.Errorf("failed to lock bid: %w", err)
		}

		if owner != bidderID {
			return fmt.Errorf("bid %d belongs to another bidder: %w", bidID, auctionerrors.ErrForbidden)
		}
		if !status.Active() {
			return fmt.Errorf("bid %d is %s and can no longer be cancelled: %w", bidID, status, auctionerrors.ErrNotFound)
		}

		bid, err = scanBid(tx.QueryRow(ctx,
			"UPDATE bids SET status = 'cancelled', updated_at = $1 "+
				"WHERE id = $2 AND status IN ('pending', 'tracking') RETURNING "+bidColumns,
			db.now(), bidID))
		if err != nil {
			return fmt.Errorf("failed to cancel bid: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// SetBidStatus applies an administrative status change. The auction row is
// locked before the bid, the same order SubmitBid uses.
func (db *DB) SetBidStatus(ctx context.Context, bidID int64, upd models.BidStatusUpdate) (*models.Bid, error) {
	var bid *models.Bid

	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var auctionID int64
		err := tx.QueryRow(ctx, "SELECT auction_id FROM bids WHERE id = $1", bidID).Scan(&auctionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("bid %d: %w", bidID, auctionerrors.ErrNotFound)
			}
			return fmt.Errorf("failed to get bid: %w", err)
		}

		if _, err := tx.Exec(ctx, "SELECT 1 FROM auctions WHERE id = $1 FOR UPDATE", auctionID); err != nil {
			return fmt.Errorf("failed to lock auction: %w", err)
		}

		current, err := scanBid(tx.QueryRow(ctx,
			"SELECT "+bidColumns+" FROM bids WHERE id = $1 FOR UPDATE", bidID))
		if err != nil {
			return fmt.Errorf("failed to lock bid: %w", err)
		}

		if !models.CanTransition(current.Status, upd.Status) {
			return fmt.Errorf("bid %d cannot move from %s to %s: %w",
				bidID, current.Status, upd.Status, auctionerrors.ErrInvalidStatus)
		}

		if upd.Status.Active() && !current.Status.Active() {
			var other bool
			err := tx.QueryRow(ctx,
				"SELECT EXISTS(SELECT 1 FROM bids WHERE auction_id = $1 AND bidder_id = $2 "+
					"AND id <> $3 AND status IN ('pending', 'tracking'))",
				current.AuctionID, current.BidderID, bidID).Scan(&other)
			if err != nil {
				return fmt.Errorf("failed to check active bid: %w", err)
			}
			if other {
				return fmt.Errorf("bidder already holds a live bid on auction %d: %w",
					current.AuctionID, auctionerrors.ErrInvalidStatus)
			}
		}

		settled := decimal.NullDecimal{}
		if upd.Status.Settles() {
			switch {
			case upd.SettledAmount != nil:
				settled = decimal.NewNullDecimal(*upd.SettledAmount)
			case current.SettledAmount.Valid:
				settled = current.SettledAmount
			case upd.Status == models.BidWon:
				settled = decimal.NewNullDecimal(current.MaxAmount)
			}
		}

		bid, err = scanBid(tx.QueryRow(ctx,
			"UPDATE bids SET status = $1, settled_amount = $2, notes = COALESCE($3, notes), updated_at = $4 "+
				"WHERE id = $5 RETURNING "+bidColumns,
			upd.Status, settled, upd.Notes, db.now(), bidID))
		if err != nil {
			return fmt.Errorf("failed to update bid status: %w", err)
		}

		if upd.Status == models.BidWon {
			if _, err := tx.Exec(ctx,
				"UPDATE auctions SET current_bid = GREATEST(current_bid, $1) WHERE id = $2",
				settled, auctionID); err != nil {
				return fmt.Errorf("failed to record winning amount: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// ListBidsByBidder returns a bidder's bids, newest first, joined with their auctions
func (db *DB) ListBidsByBidder(ctx context.Context, bidderID int64, status models.BidStatus) ([]models.BidWithAuction, error) {
	query := `
		SELECT b.id, b.auction_id, b.bidder_id, b.max_amount, b.status, b.settled_amount, b.notes,
			b.created_at, b.updated_at,
			a.make, a.model, a.year, a.color, a.current_bid, a.ends_at, a.status, a.images
		FROM bids b
		INNER JOIN auctions a ON a.id = b.auction_id
		WHERE b.bidder_id = $1`
	args := []any{bidderID}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND b.status = $%d", len(args))
	}
	query += " ORDER BY b.created_at DESC, b.id DESC"

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder bids: %w", err)
	}
	defer rows.Close()

	var bids []models.BidWithAuction
	for rows.Next() {
		var b models.BidWithAuction
		err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.MaxAmount, &b.Status, &b.SettledAmount,
			&b.Notes, &b.CreatedAt, &b.UpdatedAt,
			&b.Make, &b.Model, &b.Year, &b.Color, &b.CurrentBid, &b.EndsAt, &b.AuctionStatus, &b.Images)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get bidder bids: %w", err)
	}
	return bids, nil
}
