package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/models"
)

type SeatRepo struct {
	DB DBTX
}

const seatColumns = `id, number, type, occupied, occupancy_type, created_at, updated_at`

const createSeat = `-- name: CreateSeat
INSERT INTO seats (id, number, type)
VALUES ($1, $2, $3)
RETURNING ` + seatColumns

func (r *SeatRepo) Create(ctx context.Context, number int, seatType string) (models.Seat, error) {
	rows, _ := r.DB.Query(ctx, createSeat, uuid.New(), number, seatType)
	seat, err := collectSeat(rows)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return seat, apperrors.ErrSeatAlreadyExists
	}
	return seat, err
}

const listSeats = `-- name: ListSeats
SELECT ` + seatColumns + `
FROM seats
ORDER BY number
`

func (r *SeatRepo) List(ctx context.Context) ([]models.Seat, error) {
	rows, _ := r.DB.Query(ctx, listSeats)
	seats, err := pgx.CollectRows(rows, rowToSeat)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return seats, nil
}

const getSeatByID = `-- name: GetSeatByID
SELECT ` + seatColumns + `
FROM seats
WHERE id = $1
`

func (r *SeatRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Seat, error) {
	rows, _ := r.DB.Query(ctx, getSeatByID, id)
	return collectSeat(rows)
}

const updateSeatOccupancy = `-- name: UpdateSeatOccupancy
UPDATE seats
SET occupied = $2,
	occupancy_type = $3,
	updated_at = NOW()
WHERE id = $1
RETURNING ` + seatColumns

func (r *SeatRepo) UpdateOccupancy(ctx context.Context, id uuid.UUID, occupied bool, occupancyType *string) (models.Seat, error) {
	rows, _ := r.DB.Query(ctx, updateSeatOccupancy, id, occupied, occupancyType)
	return collectSeat(rows)
}

func collectSeat(rows pgx.Rows) (models.Seat, error) {
	seat, err := pgx.CollectOneRow(rows, rowToSeat)

	switch {
	case err == nil:
		return seat, nil
	case errors.Is(err, pgx.ErrNoRows):
		return seat, apperrors.ErrSeatNotFound
	default:
		return seat, fmt.Errorf("db error: %w", err)
	}
}

func rowToSeat(row pgx.CollectableRow) (models.Seat, error) {
	var s models.Seat
	err := row.Scan(&s.ID, &s.Number, &s.Type, &s.Occupied, &s.OccupancyType, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}
