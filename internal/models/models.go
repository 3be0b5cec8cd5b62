package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest money value the store holds (NUMERIC(12,2))
var MaxAmount = decimal.New(999999999999, -2)

// AmountInRange reports whether d fits in a money column once rounded to cents
func AmountInRange(d decimal.Decimal) bool {
	return !d.Round(2).GreaterThan(MaxAmount)
}

// Role is the account type of a user
type Role string

const (
	RoleRegular Role = "regular"
	RoleDealer  Role = "dealer"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleRegular, RoleDealer, RoleAdmin:
		return true
	}
	return false
}

// User represents a registered user
type User struct {
	ID           int64     `json:"id"`
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        *string   `json:"phone"`
	Role         Role      `json:"role"`
	Active       bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the authenticated caller of a ledger operation
type Identity struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the caller may run administrative operations
func (id Identity) IsAdmin() bool {
	return id.Role == RoleAdmin
}

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionOpen   AuctionStatus = "open"
	AuctionClosed AuctionStatus = "closed"
)

// Valid reports whether s is a known auction status
func (s AuctionStatus) Valid() bool {
	return s == AuctionOpen || s == AuctionClosed
}

// Auction is a time-boxed sale of one vehicle
type Auction struct {
	ID           int64           `json:"id"`
	Make         string          `json:"make"`
	Model        string          `json:"model"`
	Year         int             `json:"year"`
	Color        *string         `json:"color"`
	Plate        *string         `json:"plate"`
	YardCity     *string         `json:"yard_city"`
	YardState    *string         `json:"yard_state"`
	Description  *string         `json:"description"`
	Images       []string        `json:"images"`
	StartingBid  decimal.Decimal `json:"starting_bid"`
	CurrentBid   decimal.Decimal `json:"current_bid"`
	Visible      bool            `json:"visible"`
	EndsAt       time.Time       `json:"ends_at"`
	Status       AuctionStatus   `json:"status"`
	BidsReceived int             `json:"bids_received"`
	CreatedAt    time.Time       `json:"created_at"`
}

// StatusAt derives the effective status at instant now. The stored status only
// flips to closed when a write observes the expired end time, so it may lag.
func (a *Auction) StatusAt(now time.Time) AuctionStatus {
	if a.Status == AuctionClosed || !a.EndsAt.After(now) {
		return AuctionClosed
	}
	return AuctionOpen
}

// AcceptsBidsAt reports whether a bid evaluated at now may be accepted
func (a *Auction) AcceptsBidsAt(now time.Time) bool {
	return a.StatusAt(now) == AuctionOpen
}

// AuctionView is an auction annotated with values derived from its bids
type AuctionView struct {
	Auction
	EffectiveStatus AuctionStatus       `json:"effective_status"`
	BidCount        int                 `json:"bid_count"`
	MaxBid          decimal.NullDecimal `json:"max_bid"`
}

// AuctionFilter selects a page of auctions
type AuctionFilter struct {
	Status AuctionStatus // empty means any
	Limit  int
	Offset int
	Now    time.Time
}

// BidStatus is the lifecycle state of a bid
type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidTracking  BidStatus = "tracking"
	BidWon       BidStatus = "won"
	BidOutbid    BidStatus = "outbid"
	BidCancelled BidStatus = "cancelled"
)

// ActiveBidStatuses are the statuses that count toward the one-live-bid rule
var ActiveBidStatuses = []BidStatus{BidPending, BidTracking}

// Valid reports whether s is a known bid status
func (s BidStatus) Valid() bool {
	switch s {
	case BidPending, BidTracking, BidWon, BidOutbid, BidCancelled:
		return true
	}
	return false
}

// Active reports whether the bid is still unresolved
func (s BidStatus) Active() bool {
	return s == BidPending || s == BidTracking
}

// Terminal reports whether no further transition is allowed
func (s BidStatus) Terminal() bool {
	return s == BidWon || s == BidCancelled
}

// Settles reports whether the status records a settled amount
func (s BidStatus) Settles() bool {
	return s == BidWon || s == BidOutbid
}

// CanTransition reports whether a bid in status from may move to status to.
// Re-applying a terminal status is allowed so settlement data can be corrected.
func CanTransition(from, to BidStatus) bool {
	if !to.Valid() {
		return false
	}
	if from.Terminal() {
		return from == to
	}
	return true
}

// Bid is a bidder's maximum commitment against one auction
type Bid struct {
	ID            int64               `json:"id"`
	AuctionID     int64               `json:"auction_id"`
	BidderID      int64               `json:"bidder_id"`
	MaxAmount     decimal.Decimal     `json:"max_amount"`
	Status        BidStatus           `json:"status"`
	SettledAmount decimal.NullDecimal `json:"settled_amount"`
	Notes         *string             `json:"notes"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// BidStatusUpdate is an administrative change to a bid
type BidStatusUpdate struct {
	Status        BidStatus
	SettledAmount *decimal.Decimal
	Notes         *string
}

// BidWithAuction is a bid joined with a summary of its auction
type BidWithAuction struct {
	Bid
	Make          string          `json:"make"`
	Model         string          `json:"model"`
	Year          int             `json:"year"`
	Color         *string         `json:"color"`
	CurrentBid    decimal.Decimal `json:"current_bid"`
	EndsAt        time.Time       `json:"ends_at"`
	AuctionStatus AuctionStatus   `json:"auction_status"`
	Images        []string        `json:"images"`
}
