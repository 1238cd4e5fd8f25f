package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/client/model"
)

const DefaultSearchDelay = 300 * time.Millisecond

// SearchFunc - источник результатов поиска (обычно Bridge.SearchUsers).
type SearchFunc func(ctx context.Context, substring string) []model.User

// Debouncer - поиск по мере ввода. Каждое нажатие сбрасывает таймер;
// результат устаревшего запроса отбрасывается сравнением поколений.
type Debouncer struct {
	ctx     context.Context
	delay   time.Duration
	search  SearchFunc
	deliver func(substring string, users []model.User)

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer
}

func NewDebouncer(ctx context.Context, delay time.Duration, search SearchFunc, deliver func(string, []model.User)) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDelay
	}
	return &Debouncer{ctx: ctx, delay: delay, search: search, deliver: deliver}
}

// Input - очередное значение строки поиска.
func (d *Debouncer) Input(substring string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, substring) })
}

// Stop отменяет ожидающий таймер и делает недействительным запрос в полёте.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) fire(gen uint64, substring string) {
	if !d.latest(gen) {
		return
	}
	users := d.search(d.ctx, substring)
	if !d.latest(gen) {
		return
	}
	d.deliver(substring, users)
}

func (d *Debouncer) latest(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}
