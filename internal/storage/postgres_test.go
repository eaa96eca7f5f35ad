package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign-console/internal/config"
)

// Needs a reachable database configured through APP_POSTGRES_* variables.
func TestListenNotify(t *testing.T) {
	if os.Getenv("APP_POSTGRES_HOST") == "" {
		t.Skip("APP_POSTGRES_HOST not set")
	}
	cfg, err := config.LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := New(ctx, cfg)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Ping(ctx))

	sub, err := st.Listen(ctx, "console_test")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, st.Notify(ctx, "console_test", "payouts:4"))
	payload, err := sub.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "payouts:4", payload)
}
