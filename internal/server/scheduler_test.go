package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/pathfinder/repository/inmemory_repository"
)

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	t.Parallel()
	_, err := NewScheduler("", &fakeRunner{}, nil, nil)
	assert.Error(t, err)
	_, err = NewScheduler("every tuesday", &fakeRunner{}, nil, nil)
	assert.Error(t, err)
}

func TestSchedulerNext(t *testing.T) {
	t.Parallel()
	base := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)

	s, err := NewScheduler("@daily", &fakeRunner{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), s.Next(base))

	s, err = NewScheduler("0 */6 * * *", &fakeRunner{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), s.Next(base))
}

func TestSchedulerTickHonoursLock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	runner := &fakeRunner{}
	locker := inmemory_repository.NewLocker()
	s, err := NewScheduler("@hourly", runner, locker, nil)
	require.NoError(t, err)

	release, err := locker.TryLock(ctx, schedulerLockKey, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.False(t, s.Tick(ctx))
	assert.Equal(t, 0, runner.runs)

	release()
	assert.True(t, s.Tick(ctx))
	assert.Equal(t, 1, runner.runs)

	assert.True(t, s.Tick(ctx))
	assert.Equal(t, 2, runner.runs)
}
