package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/seatpass/internal/testutil"
)

func Test_run(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	port, err := testutil.RandomPort()
	require.NoError(t, err, "failed to get random port to start server")
	listenAddr := fmt.Sprintf("localhost:%d", port)

	noenv := func(string) string { return "" }
	wd := func() (string, error) { return t.TempDir(), nil }

	t.Run("stop with signal", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		t.Cleanup(cancel)

		err := run(ctx, noenv, wd, []string{
			"--address", listenAddr,
			"--log-level", "debug",
			"--environment", "development",
			"--database", pg.DSN,
			"--access-secret", "access",
			"--refresh-secret", "refresh",
			"--sweep-interval", "10ms",
		})

		require.NoError(t, err, "on correct stop should not return error")
	})

	t.Run("fail without secrets", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		err := run(ctx, noenv, wd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
		})

		require.Error(t, err, "secrets are required")
	})

	t.Run("fail on same secrets", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond) // Half Second
		t.Cleanup(cancel)

		err := run(ctx, noenv, wd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
			"--access-secret", "same",
			"--refresh-secret", "same",
		})

		require.Error(t, err)
	})

	t.Run("fail on unreachable redis", func(t *testing.T) {
		redisPort, err := testutil.RandomPort()
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		t.Cleanup(cancel)

		err = run(ctx, noenv, wd, []string{
			"--address", listenAddr,
			"--database", pg.DSN,
			"--access-secret", "access",
			"--refresh-secret", "refresh",
			"--environment", "development",
			"--redis", fmt.Sprintf("127.0.0.1:%d", redisPort),
		})

		require.ErrorContains(t, err, "redis")
	})
}

