package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Bcardoso2/mycar/internal/auth"
	"github.com/Bcardoso2/mycar/internal/ledger"
	"github.com/Bcardoso2/mycar/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

//go:generate mockgen -destination=mock_services.go -package=api github.com/Bcardoso2/mycar/internal/api LedgerService,AuthService

// LedgerService is the auction ledger as seen by the handlers
type LedgerService interface {
	CreateAuction(ctx context.Context, actor models.Identity, in ledger.NewAuction) (*models.Auction, error)
	GetAuction(ctx context.Context, actor *models.Identity, id int64) (*models.AuctionView, error)
	ListAuctions(ctx context.Context, status string, limit, offset int) ([]models.AuctionView, int, error)
	SubmitBid(ctx context.Context, actor models.Identity, auctionID int64, maxAmount decimal.Decimal) (*models.Bid, bool, error)
	CancelBid(ctx context.Context, actor models.Identity, bidID int64) (*models.Bid, error)
	SetBidStatus(ctx context.Context, actor models.Identity, bidID int64, status string, settled *decimal.Decimal, notes *string) (*models.Bid, error)
	ListMyBids(ctx context.Context, actor models.Identity, status string) ([]models.BidWithAuction, error)
}

// AuthService manages accounts and tokens
type AuthService interface {
	Register(ctx context.Context, r auth.Registration) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Authenticate(ctx context.Context, token string) (models.Identity, error)
	Profile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, name, phone *string) (*models.User, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	Ledger LedgerService
	Auth   AuthService

	log      logrus.FieldLogger
	validate *validator.Validate
}

// NewHandler creates a new handler
func NewHandler(l LedgerService, authService AuthService, log logrus.FieldLogger) *Handler {
	return &Handler{Ledger: l, Auth: authService, log: log, validate: newValidator()}
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Health reports that the server is up
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}

	user, token, err := h.Auth.Register(r.Context(), auth.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}

	user, token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

// Profile returns the caller's account
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	user, err := h.Auth.Profile(r.Context(), identity.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// UpdateProfile changes the caller's name or phone
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req updateProfileRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}
	if req.Name == nil && req.Phone == nil {
		h.badRequest(w, "nothing to update")
		return
	}

	user, err := h.Auth.UpdateProfile(r.Context(), identity.UserID, req.Name, req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// ChangePassword replaces the caller's password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req changePasswordRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}

	if err := h.Auth.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// ListAuctions returns a page of visible auctions
func (h *Handler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, ok := queryInt(q.Get("limit"))
	if !ok || limit < 0 {
		h.badRequest(w, "limit must be a non-negative integer")
		return
	}
	offset, ok := queryInt(q.Get("offset"))
	if !ok || offset < 0 {
		h.badRequest(w, "offset must be a non-negative integer")
		return
	}

	auctions, total, err := h.Ledger.ListAuctions(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"auctions": auctions,
		"total":    total,
		"offset":   offset,
	})
}

// GetAuction returns one auction
func (h *Handler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, "invalid auction id")
		return
	}

	var actor *models.Identity
	if identity, ok := identityFrom(r.Context()); ok {
		actor = &identity
	}

	auction, err := h.Ledger.GetAuction(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"auction": auction})
}

// CreateAuction opens an auction (admin only)
func (h *Handler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req createAuctionRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}

	auction, err := h.Ledger.CreateAuction(r.Context(), identity, ledger.NewAuction{
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		Color:       req.Color,
		Plate:       req.Plate,
		YardCity:    req.YardCity,
		YardState:   req.YardState,
		Description: req.Description,
		Images:      req.Images,
		StartingBid: req.StartingBid,
		EndsAt:      req.EndsAt,
		Hidden:      req.Hidden,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"auction": auction})
}

// SubmitBid places or raises the caller's bid on an auction
func (h *Handler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req submitBidRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}

	bid, created, err := h.Ledger.SubmitBid(r.Context(), identity, req.AuctionID, req.MaxAmount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"bid": bid, "created": created})
}

// ListMyBids returns the caller's bids
func (h *Handler) ListMyBids(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	bids, err := h.Ledger.ListMyBids(r.Context(), identity, r.URL.Query().Get("status"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bids": bids})
}

// CancelBid withdraws one of the caller's live bids
func (h *Handler) CancelBid(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, "invalid bid id")
		return
	}

	bid, err := h.Ledger.CancelBid(r.Context(), identity, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bid": bid})
}

// SetBidStatus changes a bid's status (admin only)
func (h *Handler) SetBidStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	id, ok := pathID(r)
	if !ok {
		h.badRequest(w, "invalid bid id")
		return
	}

	var req bidStatusRequest
	if msg, ok := h.decode(r, &req); !ok {
		h.badRequest(w, msg)
		return
	}

	bid, err := h.Ledger.SetBidStatus(r.Context(), identity, id, req.Status, req.SettledAmount, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"bid": bid})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter; empty means zero
func queryInt(v string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
