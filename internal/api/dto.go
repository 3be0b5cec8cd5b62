package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type registerRequest struct {
	Name     string  `json:"name" validate:"required,min=3,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,max=20"`
	Role     string  `json:"role" validate:"omitempty,oneof=regular dealer"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateProfileRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=3,max=100"`
	Phone *string `json:"phone" validate:"omitempty,max=20"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72"`
}

type createAuctionRequest struct {
	Make        string          `json:"make" validate:"required,max=50"`
	Model       string          `json:"model" validate:"required,max=50"`
	Year        int             `json:"year" validate:"required,gte=1900,lte=2100"`
	Color       *string         `json:"color" validate:"omitempty,max=30"`
	Plate       *string         `json:"plate" validate:"omitempty,max=10"`
	YardCity    *string         `json:"yard_city" validate:"omitempty,max=100"`
	YardState   *string         `json:"yard_state" validate:"omitempty,len=2"`
	Description *string         `json:"description"`
	Images      []string        `json:"images" validate:"omitempty,dive,url"`
	StartingBid decimal.Decimal `json:"starting_bid"`
	EndsAt      time.Time       `json:"ends_at" validate:"required"`
	Hidden      bool            `json:"hidden"`
}

type submitBidRequest struct {
	AuctionID int64           `json:"auction_id" validate:"required,gt=0"`
	MaxAmount decimal.Decimal `json:"max_amount"`
}

type bidStatusRequest struct {
	Status        string           `json:"status" validate:"required"`
	SettledAmount *decimal.Decimal `json:"settled_amount"`
	Notes         *string          `json:"notes" validate:"omitempty,max=1000"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. The returned message is
// safe to send to the client.
func (h *Handler) decode(r *http.Request, dst interface{}) (string, bool) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return "invalid request body", false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return "invalid request body", false
		}
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
		return strings.Join(problems, "; "), false
	}
	return "", true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
