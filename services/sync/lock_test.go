package sync

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSyncLock_ConcurrentAcquireHasOneWinner(t *testing.T) {
	lock := &fakeSyncLockRepo{}
	staleThreshold := 20 * time.Minute

	const contenders = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	var winners int32
	winnerJob := make([]string, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			jobID := "job-" + strconv.Itoa(n)
			ok, err := lock.TryAcquire(context.Background(), "sender_email_sync", jobID, staleThreshold)
			if err == nil && ok {
				winnerJob[atomic.AddInt32(&winners, 1)-1] = jobID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, winners)
	require.Equal(t, 1, lock.acquires)
	require.Equal(t, winnerJob[0], lock.currentHolder())

	// A loser cannot release on the winner's behalf.
	released, err := lock.Release(context.Background(), "sender_email_sync", "job-none")
	require.NoError(t, err)
	require.False(t, released)
	require.Equal(t, winnerJob[0], lock.currentHolder())

	// The winner's release frees the lock for the next contender.
	released, err = lock.Release(context.Background(), "sender_email_sync", winnerJob[0])
	require.NoError(t, err)
	require.True(t, released)

	ok, err := lock.TryAcquire(context.Background(), "sender_email_sync", "job-next", staleThreshold)
	require.NoError(t, err)
	require.True(t, ok)
}
