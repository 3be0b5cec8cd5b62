// Package ledger owns auctions and bids: it validates callers and inputs,
// bounds every store call with a timeout and retries submissions that lost a
// race inside the store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mock_store.go -package=ledger github.com/Bcardoso2/mycar/internal/ledger Store,Publisher

// Store is the persistent side of the ledger. Implementations enforce the
// cross-row invariants transactionally.
type Store interface {
	CreateAuction(ctx context.Context, a *models.Auction) (*models.Auction, error)
	GetAuction(ctx context.Context, id int64) (*models.AuctionView, error)
	ListAuctions(ctx context.Context, filter models.AuctionFilter) ([]models.AuctionView, int, error)
	SubmitBid(ctx context.Context, auctionID, bidderID int64, amount decimal.Decimal) (*models.Bid, bool, error)
	CancelBid(ctx context.Context, bidID, bidderID int64) (*models.Bid, error)
	SetBidStatus(ctx context.Context, bidID int64, upd models.BidStatusUpdate) (*models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID int64, status models.BidStatus) ([]models.BidWithAuction, error)
}

// Publisher receives ledger events after they are committed
type Publisher interface {
	Publish(event Event)
}

// Event types
const (
	EventAuctionCreated   = "auction_created"
	EventBidSubmitted     = "bid_submitted"
	EventBidCancelled     = "bid_cancelled"
	EventBidStatusChanged = "bid_status_changed"
)

// Event describes a committed change
type Event struct {
	Type      string           `json:"type"`
	AuctionID int64            `json:"auction_id"`
	BidID     int64            `json:"bid_id,omitempty"`
	Status    models.BidStatus `json:"status,omitempty"`
	At        time.Time        `json:"at"`
}

// Pagination limits
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Config tunes store timeouts and contention retries
type Config struct {
	StoreTimeout time.Duration
	MaxRetries   uint64
	RetryBackoff time.Duration
}

// Ledger implements the auction operations
type Ledger struct {
	store  Store
	events Publisher
	log    logrus.FieldLogger
	cfg    Config

	// Now is the clock used for creation checks and effective status
	Now func() time.Time
}

// New creates a ledger over store
func New(store Store, cfg Config, log logrus.FieldLogger) *Ledger {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 20 * time.Millisecond
	}
	return &Ledger{store: store, log: log, cfg: cfg, Now: time.Now}
}

// SetPublisher registers the receiver of committed events
func (l *Ledger) SetPublisher(p Publisher) {
	l.events = p
}

// NewAuction holds the fields an administrator supplies for an auction
type NewAuction struct {
	Make        string
	Model       string
	Year        int
	Color       *string
	Plate       *string
	YardCity    *string
	YardState   *string
	Description *string
	Images      []string
	StartingBid decimal.Decimal
	EndsAt      time.Time
	Hidden      bool
}

// CreateAuction opens a new auction
func (l *Ledger) CreateAuction(ctx context.Context, actor models.Identity, in NewAuction) (*models.Auction, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("create auction: %w", auctionerrors.ErrForbidden)
	}

	var problems []string
	if strings.TrimSpace(in.Make) == "" {
		problems = append(problems, "make is required")
	}
	if strings.TrimSpace(in.Model) == "" {
		problems = append(problems, "model is required")
	}
	if in.Year < 1900 {
		problems = append(problems, "year is required")
	}
	if !in.StartingBid.IsPositive() {
		problems = append(problems, "starting bid must be positive")
	} else if !models.AmountInRange(in.StartingBid) {
		problems = append(problems, "starting bid must not exceed "+models.MaxAmount.StringFixed(2))
	}
	if !in.EndsAt.After(l.Now()) {
		problems = append(problems, "end time must be in the future")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("create auction: %s: %w", strings.Join(problems, ", "), auctionerrors.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	auction, err := l.store.CreateAuction(ctx, &models.Auction{
		Make:        strings.TrimSpace(in.Make),
		Model:       strings.TrimSpace(in.Model),
		Year:        in.Year,
		Color:       in.Color,
		Plate:       in.Plate,
		YardCity:    in.YardCity,
		YardState:   in.YardState,
		Description: in.Description,
		Images:      in.Images,
		StartingBid: in.StartingBid,
		Visible:     !in.Hidden,
		EndsAt:      in.EndsAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create auction: %w", l.storeErr(err))
	}

	l.log.WithFields(logrus.Fields{
		"auction_id": auction.ID,
		"admin_id":   actor.UserID,
		"ends_at":    auction.EndsAt,
	}).Info("auction created")
	l.publish(Event{Type: EventAuctionCreated, AuctionID: auction.ID})

	return auction, nil
}

// GetAuction returns one auction with its live bid count and highest bid.
// Hidden auctions are only visible to administrators.
func (l *Ledger) GetAuction(ctx context.Context, actor *models.Identity, id int64) (*models.AuctionView, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	view, err := l.store.GetAuction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get auction %d: %w", id, l.storeErr(err))
	}
	if !view.Visible && (actor == nil || !actor.IsAdmin()) {
		return nil, fmt.Errorf("get auction %d: %w", id, auctionerrors.ErrNotFound)
	}

	view.EffectiveStatus = view.StatusAt(l.Now())
	return view, nil
}

// ListAuctions returns a page of visible auctions, soonest-ending first, and
// the total number of matches
func (l *Ledger) ListAuctions(ctx context.Context, status string, limit, offset int) ([]models.AuctionView, int, error) {
	filter := models.AuctionFilter{
		Status: models.AuctionStatus(status),
		Limit:  limit,
		Offset: offset,
		Now:    l.Now(),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("list auctions: unknown status %q: %w", status, auctionerrors.ErrInvalidStatus)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultPageSize
	}
	if filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	views, total, err := l.store.ListAuctions(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list auctions: %w", l.storeErr(err))
	}
	for i := range views {
		views[i].EffectiveStatus = views[i].StatusAt(filter.Now)
	}
	if views == nil {
		views = []models.AuctionView{}
	}
	return views, total, nil
}

// SubmitBid places the caller's bid or raises their live one. created reports
// whether a new bid was recorded. Amounts are checked by the store after the
// auction is known to be open, so a closed auction always reports closed.
func (l *Ledger) SubmitBid(ctx context.Context, actor models.Identity, auctionID int64, maxAmount decimal.Decimal) (bid *models.Bid, created bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	err = l.retry(ctx, func() error {
		var err error
		bid, created, err = l.store.SubmitBid(ctx, auctionID, actor.UserID, maxAmount)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("submit bid on auction %d: %w", auctionID, l.storeErr(err))
	}

	l.log.WithFields(logrus.Fields{
		"auction_id": auctionID,
		"bid_id":     bid.ID,
		"bidder_id":  actor.UserID,
		"amount":     maxAmount.String(),
		"created":    created,
	}).Info("bid submitted")
	l.publish(Event{Type: EventBidSubmitted, AuctionID: auctionID, BidID: bid.ID, Status: bid.Status})

	return bid, created, nil
}

// CancelBid withdraws one of the caller's live bids
func (l *Ledger) CancelBid(ctx context.Context, actor models.Identity, bidID int64) (*models.Bid, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	var bid *models.Bid
	err := l.retry(ctx, func() error {
		var err error
		bid, err = l.store.CancelBid(ctx, bidID, actor.UserID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cancel bid %d: %w", bidID, l.storeErr(err))
	}

	l.log.WithFields(logrus.Fields{"bid_id": bidID, "bidder_id": actor.UserID}).Info("bid cancelled")
	l.publish(Event{Type: EventBidCancelled, AuctionID: bid.AuctionID, BidID: bid.ID, Status: bid.Status})

	return bid, nil
}

// SetBidStatus is the administrative status change of a bid. Bids that are
// won or cancelled cannot be moved to another status.
func (l *Ledger) SetBidStatus(ctx context.Context, actor models.Identity, bidID int64, status string, settled *decimal.Decimal, notes *string) (*models.Bid, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("set status of bid %d: %w", bidID, auctionerrors.ErrForbidden)
	}

	upd := models.BidStatusUpdate{Status: models.BidStatus(status), SettledAmount: settled, Notes: notes}
	if !upd.Status.Valid() {
		return nil, fmt.Errorf("set status of bid %d: unknown status %q: %w", bidID, status, auctionerrors.ErrInvalidStatus)
	}
	if settled != nil && settled.IsNegative() {
		return nil, fmt.Errorf("set status of bid %d: settled amount is negative: %w", bidID, auctionerrors.ErrInvalidInput)
	}
	if settled != nil && !models.AmountInRange(*settled) {
		return nil, fmt.Errorf("set status of bid %d: settled amount exceeds %s: %w", bidID, models.MaxAmount.StringFixed(2), auctionerrors.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	var bid *models.Bid
	err := l.retry(ctx, func() error {
		var err error
		bid, err = l.store.SetBidStatus(ctx, bidID, upd)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set status of bid %d: %w", bidID, l.storeErr(err))
	}

	l.log.WithFields(logrus.Fields{
		"bid_id":   bidID,
		"status":   bid.Status,
		"admin_id": actor.UserID,
	}).Info("bid status changed")
	l.publish(Event{Type: EventBidStatusChanged, AuctionID: bid.AuctionID, BidID: bid.ID, Status: bid.Status})

	return bid, nil
}

// ListMyBids returns the caller's bids, newest first
func (l *Ledger) ListMyBids(ctx context.Context, actor models.Identity, status string) ([]models.BidWithAuction, error) {
	filter := models.BidStatus(status)
	if filter != "" && !filter.Valid() {
		return nil, fmt.Errorf("list bids: unknown status %q: %w", status, auctionerrors.ErrInvalidStatus)
	}

	ctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
	defer cancel()

	bids, err := l.store.ListBidsByBidder(ctx, actor.UserID, filter)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", l.storeErr(err))
	}

	now := l.Now()
	for i := range bids {
		a := models.Auction{Status: bids[i].AuctionStatus, EndsAt: bids[i].EndsAt}
		bids[i].AuctionStatus = a.StatusAt(now)
	}
	if bids == nil {
		bids = []models.BidWithAuction{}
	}
	return bids, nil
}

// retry reruns op while the store reports contention, up to MaxRetries times
func (l *Ledger) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.RetryBackoff
	b.MaxElapsedTime = 0

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && !errors.Is(err, auctionerrors.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, l.cfg.MaxRetries), ctx),
		func(err error, wait time.Duration) {
			l.log.WithFields(logrus.Fields{"error": err.Error(), "wait": wait.String()}).Warn("store contention, retrying")
		})
}

func (l *Ledger) publish(e Event) {
	if l.events == nil {
		return
	}
	e.At = l.Now()
	l.events.Publish(e)
}

// storeErr reports a timed-out store call as contention the caller may retry.
// The driver's text is logged here and not passed on.
func (l *Ledger) storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, auctionerrors.ErrConflict) {
		l.log.WithError(err).Warn("store call timed out")
		return auctionerrors.ErrConflict
	}
	return err
}
