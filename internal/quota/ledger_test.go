package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/campaigns-backend/internal/quota"
)

func newTestLedger(t *testing.T) *quota.Ledger {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return quota.NewLedger(rdb, 300)
}

func TestLedger_StatusEmptyDay(t *testing.T) {
	ledger := newTestLedger(t)
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	st, err := ledger.Status(context.Background(), "biz-1", day)
	require.NoError(t, err)

	assert.Equal(t, 300, st.Cap)
	assert.Equal(t, 0, st.Used)
	assert.Equal(t, 300, st.Available)
	assert.True(t, st.CanSendToday)
	assert.Equal(t, "2026-09-01", st.Date)
}

func TestLedger_ReserveAccumulates(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	day := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Reserve(ctx, "biz-1", day, 250))
	require.NoError(t, ledger.Reserve(ctx, "biz-1", day, 30))

	st, err := ledger.Status(ctx, "biz-1", day)
	require.NoError(t, err)
	assert.Equal(t, 280, st.Used)
	assert.Equal(t, 20, st.Available)
	assert.True(t, st.CanSendToday)
}

func TestLedger_AvailableFlooredAtZero(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// over-reservation can happen when two creations race; available must not go negative
	require.NoError(t, ledger.Reserve(ctx, "biz-1", day, 350))

	st, err := ledger.Status(ctx, "biz-1", day)
	require.NoError(t, err)
	assert.Equal(t, 350, st.Used)
	assert.Equal(t, 0, st.Available)
	assert.False(t, st.CanSendToday)
}

func TestLedger_ReleaseFlooredAtZero(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Reserve(ctx, "biz-1", day, 40))
	require.NoError(t, ledger.Release(ctx, "biz-1", day, 100))

	st, err := ledger.Status(ctx, "biz-1", day)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used)
	assert.Equal(t, 300, st.Available)
}

func TestLedger_DaysAreIndependent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)

	require.NoError(t, ledger.Reserve(ctx, "biz-1", today, 300))

	st, err := ledger.Status(ctx, "biz-1", tomorrow)
	require.NoError(t, err)
	assert.Equal(t, 300, st.Available, "tomorrow draws from its own pool")
}

func TestLedger_BusinessesAreIndependent(t *testing.T) {
	ledger := newTestLedger(t)
	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, ledger.Reserve(ctx, "biz-1", day, 300))

	st, err := ledger.Status(ctx, "biz-2", day)
	require.NoError(t, err)
	assert.Equal(t, 300, st.Available)
}
