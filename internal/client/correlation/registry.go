// Package correlation - таблица ожидающих вызовов: связывает correlation ID
// исходящего native-вызова с его будущим ответом.
package correlation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var ErrDuplicateCorrelationID = errors.New("correlation: duplicate correlation id")

// Rejection - ошибка, с которой хост отклонил вызов.
type Rejection struct {
	ID     string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("correlation %s rejected: %s", r.ID, r.Reason)
}

type result[T any] struct {
	val T
	err error
}

// Future - результат, который появится после resolve/reject.
type Future[T any] struct {
	id   string
	done chan result[T]
}

func (f *Future[T]) ID() string { return f.id }

// Wait блокируется до settle или отмены ctx. После отмены запись остаётся в
// реестре; снимать её - забота вызывающего (Reject).
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Registry хранит не более одного живого Future на ID.
type Registry[T any] struct {
	mu      sync.Mutex
	pending map[string]*Future[T]
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{pending: make(map[string]*Future[T])}
}

// NewID - свежий correlation ID.
func NewID() string {
	return uuid.NewString()
}

func (r *Registry[T]) Register(id string) (*Future[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCorrelationID, id)
	}
	f := &Future[T]{id: id, done: make(chan result[T], 1)}
	r.pending[id] = f
	return f, nil
}

// Resolve завершает вызов успехом. Неизвестный или уже завершённый ID - no-op.
func (r *Registry[T]) Resolve(id string, val T) bool {
	return r.settle(id, result[T]{val: val})
}

// Reject завершает вызов ошибкой. Неизвестный или уже завершённый ID - no-op.
func (r *Registry[T]) Reject(id string, reason error) bool {
	if reason == nil {
		reason = &Rejection{ID: id, Reason: "unspecified"}
	}
	return r.settle(id, result[T]{err: reason})
}

func (r *Registry[T]) settle(id string, res result[T]) bool {
	r.mu.Lock()
	f, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	f.done <- res // буфер 1, settle ровно один раз
	return true
}

func (r *Registry[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
