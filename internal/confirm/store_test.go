package confirm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAwaitReturnsDecisionWrittenFirst(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())
	s.Put("500A1", true)

	proceed, err := s.Await(context.Background(), "500A1", time.Second)
	require.NoError(t, err)
	assert.True(t, proceed)
}

func TestAwaitUnblocksOnLaterPut(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	var proceed bool
	var err error
	go func() {
		defer wg.Done()
		proceed, err = s.Await(context.Background(), "500B2", 5*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	s.Put("500B2", false)
	wg.Wait()

	require.NoError(t, err)
	assert.False(t, proceed)
}

func TestLatestWriteWins(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())
	s.Put("500C3", true)
	s.Put("500C3", false)

	proceed, err := s.Await(context.Background(), "500C3", time.Second)
	require.NoError(t, err)
	assert.False(t, proceed)
}

func TestAwaitTimesOutDeterministically(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())

	start := time.Now()
	_, err := s.Await(context.Background(), "500D4", 50*time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestAwaitHonorsContextCancellation(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Await(ctx, "500E5", 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecisionIsConsumedOnce(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())
	s.Put("500F6", true)

	_, err := s.Await(context.Background(), "500F6", time.Second)
	require.NoError(t, err)

	// The consumed decision is gone; a second Await must time out.
	_, err = s.Await(context.Background(), "500F6", 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUnconsumedDecisionsExpire(t *testing.T) {
	s := NewStore(10*time.Millisecond, zap.NewNop())
	s.Put("500G7", true)
	assert.True(t, s.Pending("500G7"))

	time.Sleep(20 * time.Millisecond)
	// Any write prunes expired entries.
	s.Put("other", true)
	assert.False(t, s.Pending("500G7"))
}

func TestIndependentRecordsDoNotInterfere(t *testing.T) {
	s := NewStore(time.Minute, zap.NewNop())
	s.Put("a", true)
	s.Put("b", false)

	pa, err := s.Await(context.Background(), "a", time.Second)
	require.NoError(t, err)
	pb, err := s.Await(context.Background(), "b", time.Second)
	require.NoError(t, err)

	assert.True(t, pa)
	assert.False(t, pb)
}
