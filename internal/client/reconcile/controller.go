// Package reconcile сводит живой поток, историю и оптимистичные отправки в
// одну упорядоченную ленту без дублей для каждой комнаты.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cwrk-planet/chat-service/internal/client/bridge"
	"github.com/cwrk-planet/chat-service/internal/client/directory"
	"github.com/cwrk-planet/chat-service/internal/client/live"
	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/wire"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

const DefaultHistoryPage = 50

// Bridge - то, что контроллеру нужно от native-моста.
type Bridge interface {
	UserID() string
	UserName() string
	SetLoaded()
	ShowLoading()
	HideLoading()
	ShowError(title, message string, recoverable bool)

	PostMessage(m model.Message)
	MessageHistory(ctx context.Context, req wire.GetMessagesRequest) bridge.HistoryPage
	UserGroups(ctx context.Context) []model.Room
}

// Live - подписка на группы в живом потоке.
type Live interface {
	JoinRoom(ctx context.Context, roomID string) error
	Connected() bool
}

type Config struct {
	HistoryPage int
	Now         func() time.Time
	NewID       func() string
}

// Controller - единственный, кто мутирует ленты (через Directory).
// Встроенный Directory даёт UI его публичную поверхность.
type Controller struct {
	*directory.Directory

	bridge Bridge
	live   Live
	cfg    Config
	log    *slog.Logger

	mu     sync.Mutex
	states map[string]State
	runCtx context.Context
	wg     sync.WaitGroup
}

func New(dir *directory.Directory, br Bridge, lv Live, cfg Config, log *slog.Logger) *Controller {
	if cfg.HistoryPage <= 0 {
		cfg.HistoryPage = DefaultHistoryPage
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &Controller{
		Directory: dir,
		bridge:    br,
		live:      lv,
		cfg:       cfg,
		log:       logger.Component(log, "reconcile"),
		states:    make(map[string]State),
		runCtx:    context.Background(),
	}
}

// Start - первичная загрузка: группы пользователя -> комнаты. Loading скрывается
// в любом случае; без комнат открывается выбор комнаты.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()

	c.bridge.ShowLoading()
	func() {
		defer func() {
			c.ShowPickerIfEmpty()
			c.bridge.HideLoading()
		}()

		groups := c.bridge.UserGroups(ctx)
		c.log.Debug("received user groups", "count", len(groups))
		for _, g := range groups {
			c.AddRoom(g)
		}
	}()

	if !c.live.Connected() {
		c.log.Warn("live stream not connected at startup")
		c.bridge.ShowError("Failed to connect to message service",
			"The app couldn't connect to the message service, are you connected to the server?", false)
	}
	c.bridge.SetLoaded()
}

// AddRoom добавляет комнату; если она стала активной, готовит её в фоне.
func (c *Controller) AddRoom(r model.Room) bool {
	if !c.Directory.AddRoom(r) {
		return false
	}
	c.enterIfActive()
	return true
}

// SwitchToRoom переключает активную комнату и при первом входе готовит её в фоне.
func (c *Controller) SwitchToRoom(roomID string) bool {
	if !c.Directory.SwitchToRoom(roomID) {
		return false
	}
	c.enterIfActive()
	return true
}

// RemoveRoom удаляет комнату локально; повторное добавление подготовит её заново.
func (c *Controller) RemoveRoom(roomID string) bool {
	if !c.Directory.RemoveRoom(roomID) {
		return false
	}
	c.mu.Lock()
	delete(c.states, roomID)
	c.mu.Unlock()

	c.enterIfActive()
	return true
}

// EnterRoom: Idle -> Subscribing -> FetchingHistory -> Deduplicating -> Ready.
// Повторный вызов для комнаты не в Idle - no-op.
func (c *Controller) EnterRoom(ctx context.Context, roomID string) error {
	if !c.transition(roomID, Idle, Subscribing) {
		return nil
	}

	c.bridge.ShowLoading()
	defer c.bridge.HideLoading()

	// подписка до запроса истории: всё, что придёт в окне запроса, попадёт в ленту
	if err := c.live.JoinRoom(ctx, roomID); err != nil {
		if errors.Is(err, live.ErrJoinRejected) || ctx.Err() != nil {
			c.transition(roomID, Subscribing, Idle)
			c.log.Warn("subscribe failed", "room_id", roomID, "err", err)
			return err
		}
		// соединения нет: комната подпишется при подключении, историю показываем сейчас
		c.log.Warn("subscribe deferred", "room_id", roomID, "err", err)
	}

	if !c.transition(roomID, Subscribing, FetchingHistory) {
		return nil
	}
	page := c.bridge.MessageHistory(ctx, wire.GetMessagesRequest{GroupID: roomID, Limit: int64(c.cfg.HistoryPage)})

	if !c.merge(roomID, page.Messages) {
		return nil
	}
	c.transition(roomID, Deduplicating, Ready)
	return nil
}

// merge: FetchingHistory -> Deduplicating и слияние страницы. false - комнату
// удалили, пока шёл запрос; её состояние сброшено.
func (c *Controller) merge(roomID string, msgs []model.Message) bool {
	if !c.transition(roomID, FetchingHistory, Deduplicating) {
		return false
	}
	res, ok := c.MergeHistory(roomID, msgs)
	if !ok {
		c.clearState(roomID)
		return false
	}
	c.log.Debug("history merged", "room_id", roomID, "inserted", res.Inserted, "duplicates", res.Duplicates)
	return true
}

// Send - оптимистичная отправка в активную комнату: сообщение сразу в ленте,
// ID запоминается как своё, эхо из потока будет отброшено.
func (c *Controller) Send(content string) (model.Message, bool) {
	if strings.TrimSpace(content) == "" {
		return model.Message{}, false
	}
	room, ok := c.ActiveRoom()
	if !ok {
		c.log.Debug("send: no active room")
		return model.Message{}, false
	}

	m := model.Message{
		ID:         c.cfg.NewID(),
		RoomID:     room.ID,
		SenderID:   c.bridge.UserID(),
		SenderName: c.bridge.UserName(),
		Content:    content,
		CreatedAt:  c.cfg.Now().UnixMilli(),
	}
	if !c.AddSent(m) {
		return model.Message{}, false
	}
	c.bridge.PostMessage(m)
	return m, true
}

// State - этап подготовки комнаты.
func (c *Controller) State(roomID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[roomID]
}

// Wait дожидается фоновых входов в комнаты.
func (c *Controller) Wait() { c.wg.Wait() }

// --- live.Handler ---

func (c *Controller) OnMessage(m model.Message) {
	if !c.AddMessage(m) {
		c.log.Debug("live message dropped", "room_id", m.RoomID, "message_id", m.ID)
	}
}

func (c *Controller) OnGroupAdded(r model.Room) {
	if !c.AddRoom(r) {
		c.log.Debug("group added ignored", "room_id", r.ID)
	}
}

// OnReconnected догружает историю готовых комнат: всё, что пропущено за
// время разрыва, вливается через тот же путь дедупликации.
func (c *Controller) OnReconnected(ctx context.Context) {
	c.mu.Lock()
	var ready []string
	for id, st := range c.states {
		if st == Ready {
			ready = append(ready, id)
		}
	}
	c.mu.Unlock()

	for _, id := range ready {
		if !c.transition(id, Ready, FetchingHistory) {
			continue
		}
		page := c.bridge.MessageHistory(ctx, wire.GetMessagesRequest{GroupID: id, Limit: int64(c.cfg.HistoryPage)})
		if !c.merge(id, page.Messages) {
			continue
		}
		c.transition(id, Deduplicating, Ready)
		c.log.Info("backfilled after reconnect", "room_id", id)
	}
}

var _ live.Handler = (*Controller)(nil)

func (c *Controller) enterIfActive() {
	room, ok := c.ActiveRoom()
	if !ok || c.State(room.ID) != Idle {
		return
	}

	c.mu.Lock()
	ctx := c.runCtx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.EnterRoom(ctx, room.ID)
	}()
}

func (c *Controller) transition(roomID string, from, to State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.states[roomID] != from {
		return false
	}
	c.states[roomID] = to
	return true
}

func (c *Controller) clearState(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, roomID)
}
