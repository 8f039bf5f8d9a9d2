package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaladseva/eseva-portal/notify"
)

func TestNoticesAccumulateAndDrain(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	center := notify.NewCenter(notify.WithNowTime(func() time.Time { return now }))

	center.Error("Please sign in to continue")
	center.Warning("Your session has expired")

	notices := center.Drain()
	require.Len(t, notices, 2)
	require.Equal(t, notify.LevelError, notices[0].Level)
	require.Equal(t, notify.LevelWarning, notices[1].Level)
	require.Equal(t, now, notices[0].CreatedAt)
	require.NotEmpty(t, notices[0].ID)
	require.NotEqual(t, notices[0].ID, notices[1].ID)

	require.Empty(t, center.Drain(), "drain clears pending notices")
}

func TestPeekDoesNotClear(t *testing.T) {
	center := notify.NewCenter()
	center.Info("heads up")

	require.Len(t, center.Peek(), 1)
	require.Len(t, center.Peek(), 1)
}

func TestRemoveDeletesOneNotice(t *testing.T) {
	center := notify.NewCenter()
	keep := center.Success("saved")
	drop := center.Error("failed")

	center.Remove(drop)

	notices := center.Drain()
	require.Len(t, notices, 1)
	require.Equal(t, keep, notices[0].ID)
}
