package fanout

import (
	"context"
	"sync"
)

// MemoryBroker - для одного инстанса: доставка синхронная, в горутине Publish.
type MemoryBroker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]Handler)}
}

func (b *MemoryBroker) Publish(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range b.subs {
		h(ev)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, h Handler) error {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBroker) Close() error { return nil }
