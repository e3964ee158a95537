package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/nkiryanov/seatpass/internal/handlers/render"
	"github.com/nkiryanov/seatpass/internal/logger"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/service/seat"
)

type seatView struct {
	ID            uuid.UUID `json:"id"`
	Number        int       `json:"number"`
	Type          string    `json:"type"`
	Occupied      bool      `json:"occupied"`
	OccupancyType *string   `json:"occupancyType"`
}

func newSeatView(s models.Seat) seatView {
	return seatView{
		ID:            s.ID,
		Number:        s.Number,
		Type:          s.Type,
		Occupied:      s.Occupied,
		OccupancyType: s.OccupancyType,
	}
}

// nullableString tells absent field from explicit null
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}

	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func handleListSeats(s seatService, l logger.Logger) http.Handler {
	type response struct {
		Seats []seatView `json:"seats"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seats, err := s.List(r.Context())
		if err != nil {
			writeError(w, l, err)
			return
		}

		resp := response{Seats: make([]seatView, 0, len(seats))}
		for _, st := range seats {
			resp.Seats = append(resp.Seats, newSeatView(st))
		}
		render.JSON(w, resp)
	})
}

func handleCreateSeat(s seatService, l logger.Logger) http.Handler {
	type request struct {
		Number int    `json:"number" validate:"required,min=1"`
		Type   string `json:"type" validate:"omitempty,oneof=REGULAR SPECIAL"`
	}
	type response struct {
		Seat seatView `json:"seat"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		created, err := s.Create(r.Context(), data.Number, data.Type)
		if err != nil {
			writeError(w, l, err)
			return
		}

		render.JSONWithStatus(w, response{Seat: newSeatView(created)}, http.StatusCreated)
	})
}

func handleUpdateSeat(s seatService, l logger.Logger) http.Handler {
	type request struct {
		Occupied      *bool          `json:"occupied"`
		OccupancyType nullableString `json:"occupancyType"`
	}
	type response struct {
		Seat seatView `json:"seat"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			render.ServiceError(w, "Invalid seat id", http.StatusBadRequest)
			return
		}

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		updated, err := s.UpdateOccupancy(r.Context(), id, seat.OccupancyUpdate{
			Occupied: data.Occupied,
			HasType:  data.OccupancyType.Set,
			Type:     data.OccupancyType.Value,
		})
		if err != nil {
			writeError(w, l, err)
			return
		}

		render.JSON(w, response{Seat: newSeatView(updated)})
	})
}
