package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardImplLocation(t *testing.T) {
	impl, err := NewStandardImpl("")
	require.NoError(t, err)
	require.Equal(t, time.UTC, impl.Location())

	impl, err = NewStandardImpl("Asia/Tokyo")
	require.NoError(t, err)
	require.Equal(t, "Asia/Tokyo", impl.Now().Location().String())

	_, err = NewStandardImpl("Not/AZone")
	require.Error(t, err)
}

func TestSleepHonorsCancellation(t *testing.T) {
	impl, err := NewStandardImpl("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err = impl.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)

	require.NoError(t, impl.Sleep(context.Background(), time.Millisecond))
}
