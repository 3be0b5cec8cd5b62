package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Bcardoso2/mycar/internal/auctionerrors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps ledger and account errors to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auctionerrors.ErrAuctionClosed),
		errors.Is(err, auctionerrors.ErrBidTooLow),
		errors.Is(err, auctionerrors.ErrInvalidStatus),
		errors.Is(err, auctionerrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, auctionerrors.ErrConflict),
		errors.Is(err, auctionerrors.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auctionerrors.ErrInvalidCredentials),
		errors.Is(err, auctionerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends the error envelope. Unexpected errors and conflicts are
// logged and reported without their message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: auctionerrors.Kind(err), Message: err.Error()}

	switch {
	case status == http.StatusInternalServerError:
		logFrom(r.Context(), h.log).WithError(err).Error("request failed")
		resp.Message = "internal server error"
	case errors.Is(err, auctionerrors.ErrConflict):
		logFrom(r.Context(), h.log).WithError(err).Warn("request conflicted")
		resp.Message = auctionerrors.ErrConflict.Error()
	}
	writeJSON(w, status, resp)
}

func (h *Handler) badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: message})
}
