package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/jackc/pgx/v5"
)

const auctionColumns = "a.id, a.make, a.model, a.year, a.color, a.plate, a.yard_city, a.yard_state, " +
	"a.description, a.images, a.starting_bid, a.current_bid, a.visible, a.ends_at, a.status, " +
	"a.bids_received, a.created_at"

// derived per-auction values: live bid count and highest non-cancelled bid
const auctionAggregates = `
	(SELECT COUNT(*) FROM bids b WHERE b.auction_id = a.id AND b.status IN ('pending', 'tracking')),
	(SELECT MAX(b.max_amount) FROM bids b WHERE b.auction_id = a.id AND b.status <> 'cancelled')`

func auctionDest(a *models.Auction) []any {
	return []any{&a.ID, &a.Make, &a.Model, &a.Year, &a.Color, &a.Plate, &a.YardCity, &a.YardState,
		&a.Description, &a.Images, &a.StartingBid, &a.CurrentBid, &a.Visible, &a.EndsAt, &a.Status,
		&a.BidsReceived, &a.CreatedAt}
}

// CreateAuction inserts a new open auction; the current bid starts at the starting bid
func (db *DB) CreateAuction(ctx context.Context, a *models.Auction) (*models.Auction, error) {
	images := a.Images
	if images == nil {
		images = []string{}
	}

	created := &models.Auction{}
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO auctions AS a (
			make, model, year, color, plate, yard_city, yard_state,
			description, images, starting_bid, current_bid, visible, ends_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11, $12)
		RETURNING `+auctionColumns,
		a.Make, a.Model, a.Year, a.Color, a.Plate, a.YardCity, a.YardState,
		a.Description, images, a.StartingBid, a.Visible, a.EndsAt).Scan(auctionDest(created)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create auction: %w", err)
	}
	return created, nil
}

// GetAuction retrieves one auction with its bid aggregates, visible or not
func (db *DB) GetAuction(ctx context.Context, id int64) (*models.AuctionView, error) {
	view := &models.AuctionView{}
	dest := append(auctionDest(&view.Auction), &view.BidCount, &view.MaxBid)
	err := db.Pool.QueryRow(ctx,
		"SELECT "+auctionColumns+","+auctionAggregates+" FROM auctions a WHERE a.id = $1",
		id).Scan(dest...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("auction %d: %w", id, auctionerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return view, nil
}

// ListAuctions returns a page of visible auctions, soonest-ending first, and
// the number of auctions matching the filter. The status filter is applied to
// the effective status at filter.Now.
func (db *DB) ListAuctions(ctx context.Context, filter models.AuctionFilter) ([]models.AuctionView, int, error) {
	query := "SELECT " + auctionColumns + "," + auctionAggregates + ", COUNT(*) OVER () " +
		"FROM auctions a WHERE a.visible"
	args := []any{}

	switch filter.Status {
	case models.AuctionOpen:
		args = append(args, filter.Now)
		query += fmt.Sprintf(" AND a.status = 'open' AND a.ends_at > $%d", len(args))
	case models.AuctionClosed:
		args = append(args, filter.Now)
		query += fmt.Sprintf(" AND (a.status = 'closed' OR a.ends_at <= $%d)", len(args))
	}

	query += " ORDER BY a.ends_at ASC, a.id ASC"

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	args = append(args, filter.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var (
		views []models.AuctionView
		total int
	)
	for rows.Next() {
		var view models.AuctionView
		dest := append(auctionDest(&view.Auction), &view.BidCount, &view.MaxBid, &total)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan auction: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list auctions: %w", err)
	}

	// past the last page the window count is not available
	if len(views) == 0 && filter.Offset > 0 {
		total, err = db.countAuctions(ctx, filter)
		if err != nil {
			return nil, 0, err
		}
	}
	return views, total, nil
}

func (db *DB) countAuctions(ctx context.Context, filter models.AuctionFilter) (int, error) {
	query := "SELECT COUNT(*) FROM auctions a WHERE a.visible"
	args := []any{}
	switch filter.Status {
	case models.AuctionOpen:
		args = append(args, filter.Now)
		query += " AND a.status = 'open' AND a.ends_at > $1"
	case models.AuctionClosed:
		args = append(args, filter.Now)
		query += " AND (a.status = 'closed' OR a.ends_at <= $1)"
	}

	var total int
	if err := db.Pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count auctions: %w", err)
	}
	return total, nil
}
