package correlation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ResolveDeliversValue(t *testing.T) {
	r := NewRegistry[string]()
	f, err := r.Register("c1")
	require.NoError(t, err)

	go r.Resolve("c1", "payload")

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
	assert.Zero(t, r.Pending())
}

func TestRegistry_DuplicateRegister(t *testing.T) {
	r := NewRegistry[string]()
	_, err := r.Register("c1")
	require.NoError(t, err)

	_, err = r.Register("c1")
	assert.ErrorIs(t, err, ErrDuplicateCorrelationID)
	assert.Equal(t, 1, r.Pending())
}

func TestRegistry_SettleIsIdempotent(t *testing.T) {
	r := NewRegistry[int]()
	f, err := r.Register("c1")
	require.NoError(t, err)

	assert.True(t, r.Resolve("c1", 1))
	assert.False(t, r.Resolve("c1", 2))
	assert.False(t, r.Reject("c1", errors.New("late")))

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRegistry_UnknownIDIsNoop(t *testing.T) {
	r := NewRegistry[int]()
	assert.NotPanics(t, func() {
		assert.False(t, r.Resolve("nope", 1))
		assert.False(t, r.Reject("nope", nil))
	})
}

func TestRegistry_Reject(t *testing.T) {
	r := NewRegistry[int]()
	f, err := r.Register("c1")
	require.NoError(t, err)

	r.Reject("c1", nil)

	_, err = f.Wait(context.Background())
	var rej *Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, "c1", rej.ID)

	// ID освободился - можно зарегистрировать снова
	_, err = r.Register("c1")
	assert.NoError(t, err)
}

func TestFuture_WaitRespectsContext(t *testing.T) {
	r := NewRegistry[int]()
	f, err := r.Register("c1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, r.Pending())
}

func TestRegistry_ConcurrentSettle(t *testing.T) {
	r := NewRegistry[int]()
	f, err := r.Register("c1")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			if r.Resolve("c1", v) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	_, err = f.Wait(context.Background())
	assert.NoError(t, err)
}
