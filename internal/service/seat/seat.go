package seat

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
	"github.com/nkiryanov/seatpass/internal/repository"
)

// OccupancyUpdate is a partial seat update.
// HasType distinguishes absent occupancy type from explicit null (Type == nil)
type OccupancyUpdate struct {
	Occupied *bool
	HasType  bool
	Type     *string
}

type SeatService struct {
	storage repository.Storage
}

func NewService(storage repository.Storage) *SeatService {
	return &SeatService{storage: storage}
}

// List returns every seat ordered by number
func (s *SeatService) List(ctx context.Context) ([]models.Seat, error) {
	seats, err := s.storage.Seat().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't list seats. Err: %w", err)
	}
	return seats, nil
}

// Create adds a free seat. Empty type means REGULAR.
// Returns apperrors.ErrInvalidSeatType or apperrors.ErrSeatAlreadyExists
func (s *SeatService) Create(ctx context.Context, number int, seatType string) (models.Seat, error) {
	if seatType == "" {
		seatType = models.SeatTypeRegular
	}
	if !models.ValidSeatType(seatType) {
		return models.Seat{}, apperrors.ErrInvalidSeatType
	}

	seat, err := s.storage.Seat().Create(ctx, number, seatType)
	if err != nil {
		return seat, fmt.Errorf("can't create seat. Err: %w", err)
	}
	return seat, nil
}

// UpdateOccupancy applies partial update keeping 'occupied' and 'occupancy type' consistent.
// Returns apperrors.ErrSeatNotFound or apperrors.ErrInvalidOccupancy
func (s *SeatService) UpdateOccupancy(ctx context.Context, id uuid.UUID, upd OccupancyUpdate) (models.Seat, error) {
	var seat models.Seat

	err := s.storage.InTx(ctx, func(st repository.Storage) error {
		current, err := st.Seat().GetByID(ctx, id)
		if err != nil {
			return err
		}

		occupied, occupancyType, err := applyOccupancy(current, upd)
		if err != nil {
			return err
		}

		seat, err = st.Seat().UpdateOccupancy(ctx, id, occupied, occupancyType)
		return err
	})
	if err != nil {
		return seat, fmt.Errorf("can't update seat. Err: %w", err)
	}

	return seat, nil
}

// Rules:
//   - occupied=true takes given type or FULL_DAY;
//   - occupied=false always clears the type;
//   - type alone marks seat occupied, null type alone frees it.
func applyOccupancy(seat models.Seat, upd OccupancyUpdate) (bool, *string, error) {
	occupied, occupancyType := seat.Occupied, seat.OccupancyType

	switch {
	case upd.Occupied != nil && *upd.Occupied:
		occupied = true
		occupancyType = ptr(models.OccupancyFullDay)
		if upd.Type != nil {
			occupancyType = upd.Type
		}
	case upd.Occupied != nil:
		occupied, occupancyType = false, nil
	case upd.HasType && upd.Type == nil:
		occupied, occupancyType = false, nil
	case upd.HasType:
		occupied, occupancyType = true, upd.Type
	}

	if occupancyType != nil && !models.ValidOccupancyType(*occupancyType) {
		return false, nil, apperrors.ErrInvalidOccupancy
	}
	if occupied && occupancyType == nil {
		return false, nil, apperrors.ErrInvalidOccupancy
	}

	return occupied, occupancyType, nil
}

func ptr[T any](v T) *T {
	return &v
}
