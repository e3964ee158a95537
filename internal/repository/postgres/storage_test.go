package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/seatpass/internal/apperrors"
	"github.com/nkiryanov/seatpass/internal/repository"
	"github.com/nkiryanov/seatpass/internal/testutil"
)

func Test_Storage_InTx(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("commit on success", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.User().CreateUser(t.Context(), newUserParams("commit@example.com"))
				return err
			})

			require.NoError(t, err)
			_, err = s.User().GetUserByEmail(t.Context(), "commit@example.com")
			require.NoError(t, err, "user must be visible after commit")
		})
	})

	t.Run("rollback on error", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			s := NewStorage(tx)
			boom := errors.New("boom")

			err := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.User().CreateUser(t.Context(), newUserParams("rollback@example.com"))
				require.NoError(t, err)
				return boom
			})

			require.ErrorIs(t, err, boom)
			_, err = s.User().GetUserByEmail(t.Context(), "rollback@example.com")
			require.ErrorIs(t, err, apperrors.ErrUserNotFound, "user must not exist after rollback")
		})
	})
}
