package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowIsUTCMicroseconds(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	got := New().Now()

	require.Equal(t, time.UTC, got.Location())
	require.Zero(t, got.Nanosecond()%int(Precision))
	require.WithinRange(t, got, before, time.Now().Add(time.Second))
}

func TestNowRoundTripsThroughLedgerPrecision(t *testing.T) {
	t.Parallel()

	got := New().Now()
	require.True(t, got.Equal(got.Truncate(time.Microsecond)))
	require.True(t, got.Equal(time.UnixMicro(got.UnixMicro())))
}
