package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/handlers/render"
	"github.com/nkiryanov/seatpass/internal/handlers/userctx"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/service/subscription"
)

type subscriptionView struct {
	ID            uuid.UUID       `json:"id"`
	Plan          string          `json:"plan"`
	Status        string          `json:"status"`
	StartDate     time.Time       `json:"startDate"`
	ExpiryDate    time.Time       `json:"expiryDate"`
	DaysRemaining *int            `json:"daysRemaining,omitempty"`
	Duration      int             `json:"duration"`
	Shift         string          `json:"shift"`
	SeatType      string          `json:"seatType"`
	AmountPaid    decimal.Decimal `json:"amountPaid"`
}

func newSubscriptionView(s models.Subscription) subscriptionView {
	return subscriptionView{
		ID:         s.ID,
		Plan:       s.Plan,
		Status:     s.Status,
		StartDate:  s.StartDate,
		ExpiryDate: s.ExpiryDate,
		Duration:   s.Duration,
		Shift:      s.Shift,
		SeatType:   s.SeatType,
		AmountPaid: s.AmountPaid,
	}
}

func handleCurrentSubscription(s subscriptionService, l logger.Logger) http.Handler {
	type response struct {
		Message      string        `json:"message,omitempty"`
		Subscription *subscriptionView `json:"subscription"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, _ := userctx.FromContext(r.Context())

		current, err := s.GetCurrent(r.Context(), u.ID)
		switch {
		case err == nil:
		case errors.Is(err, apperrors.ErrSubscriptionNotFound):
			render.JSON(w, response{Message: "No active subscription found"})
			return
		default:
			writeError(w, l, err)
			return
		}

		sub := newSubscriptionView(current.Subscription)
		sub.DaysRemaining = &current.DaysRemaining
		render.JSON(w, response{Subscription: &sub})
	})
}

func handleUpdateSubscriptionStatus(s subscriptionService, l logger.Logger) http.Handler {
	type request struct {
		Status string `json:"status" validate:"required,oneof=Active Expired Cancelled"`
	}
	type response struct {
		Message      string       `json:"message"`
		Subscription subscriptionView `json:"subscription"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid subscription id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		sub, err := s.UpdateStatus(r.Context(), id, data.Status)
		if err != nil {
			writeError(w, l, err)
			return
		}

		render.JSON(w, response{Message: "Subscription status updated", Subscription: newSubscriptionView(sub)})
	})
}

func handleCreateSubscription(s subscriptionService, l logger.Logger) http.Handler {
	type request struct {
		UserID     string          `json:"userId" validate:"required,uuid"`
		Plan       string          `json:"plan" validate:"required,max=100"`
		Duration   int             `json:"duration" validate:"required,min=1,max=24"`
		Shift      string          `json:"shift" validate:"max=50"`
		SeatType   string          `json:"seatType" validate:"omitempty,oneof=REGULAR SPECIAL"`
		AmountPaid decimal.Decimal `json:"amountPaid"`
	}
	type response struct {
		Message      string       `json:"message"`
		Subscription subscriptionView `json:"subscription"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		sub, err := s.Create(r.Context(), subscription.CreateParams{
			UserID:     uuid.MustParse(data.UserID),
			Plan:       data.Plan,
			Duration:   data.Duration,
			Shift:      data.Shift,
			SeatType:   data.SeatType,
			AmountPaid: data.AmountPaid,
		})
		if err != nil {
			writeError(w, l, err)
			return
		}

		render.JSONWithStatus(w, response{Message: "Subscription created", Subscription: newSubscriptionView(sub)}, http.StatusCreated)
	})
}
