package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var retried []int
	err := withRetry(context.Background(), 5, time.Millisecond,
		func(attempt int, _ error) { retried = append(retried, attempt) },
		func() error {
			calls++
			if calls < 3 {
				return errors.New("redis down")
			}
			return nil
		})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestWithRetry_GivesUpWithLastError(t *testing.T) {
	boom := errors.New("still down")
	calls := 0
	err := withRetry(context.Background(), 3, time.Millisecond, nil, func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 10, time.Hour, func(int, error) { cancel() }, func() error {
		calls++
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_AtLeastOnce(t *testing.T) {
	calls := 0
	_ = withRetry(context.Background(), 0, time.Millisecond, nil, func() error {
		calls++
		return errors.New("fail")
	})
	assert.Equal(t, 1, calls)
}
