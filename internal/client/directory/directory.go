// Package directory - набор комнат клиента, активная комната и маршрутизация
// входящих сообщений в ленту нужной комнаты.
package directory

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/client/timeline"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

type room struct {
	info  model.Room
	store *timeline.Store
}

// MessageRef адресует сообщение для RemoveMessages.
type MessageRef struct {
	MessageID string
	RoomID    string
}

// MergeResult - итог слияния страницы истории.
type MergeResult struct {
	Inserted   int
	Duplicates int
}

// Directory - единственный владелец лент. Все мутации идут под mu,
// уведомления View отправляются после разблокировки.
type Directory struct {
	mu     sync.Mutex
	order  []string
	rooms  map[string]*room
	active string
	sent   map[string]struct{} // ID, отправленные этим клиентом

	view View
	log  *slog.Logger
}

func New(view View, log *slog.Logger) *Directory {
	if view == nil {
		view = NopView{}
	}
	return &Directory{
		rooms: make(map[string]*room),
		sent:  make(map[string]struct{}),
		view:  view,
		log:   logger.Component(log, "directory"),
	}
}

// AddRoom регистрирует комнату; первая добавленная становится активной.
func (d *Directory) AddRoom(r model.Room) bool {
	if !r.Valid() {
		d.log.Debug("add room: invalid room", "id", r.ID, "name", r.Name)
		return false
	}

	d.mu.Lock()
	if _, ok := d.rooms[r.ID]; ok {
		d.mu.Unlock()
		return false
	}
	d.rooms[r.ID] = &room{info: r, store: timeline.New()}
	d.order = append(d.order, r.ID)
	first := len(d.order) == 1
	if first {
		d.active = r.ID
	}
	rooms, active := d.snapshotLocked()
	d.mu.Unlock()

	d.view.RoomsChanged(rooms, active)
	if first {
		d.view.HideRoomPicker()
	}
	return true
}

// RemoveRoom удаляет комнату. Для активной выбирается соседняя:
// следующая, если удаляемая была первой, иначе предыдущая.
func (d *Directory) RemoveRoom(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	idx := slices.Index(d.order, id)
	if idx < 0 {
		d.mu.Unlock()
		return false
	}

	if id == d.active && len(d.order) == 1 {
		d.order = nil
		d.rooms = make(map[string]*room)
		d.active = ""
		d.mu.Unlock()

		d.log.Debug("removed last room")
		d.view.RoomsChanged(nil, "")
		d.view.ShowRoomPicker(true)
		return true
	}

	if id == d.active {
		next := idx - 1
		if idx == 0 {
			next = 1
		}
		d.active = d.order[next]
	}
	d.order = slices.Delete(d.order, idx, idx+1)
	delete(d.rooms, id)
	rooms, active := d.snapshotLocked()
	d.mu.Unlock()

	d.view.RoomsChanged(rooms, active)
	return true
}

func (d *Directory) SwitchToRoom(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	if id == d.active {
		d.mu.Unlock()
		return true
	}
	if _, ok := d.rooms[id]; !ok {
		d.mu.Unlock()
		d.log.Debug("switch room: unknown room", "room_id", id)
		return false
	}
	d.active = id
	rooms, active := d.snapshotLocked()
	d.mu.Unlock()

	d.view.RoomsChanged(rooms, active)
	d.view.HideRoomPicker()
	return true
}

func (d *Directory) ActiveRoom() (model.Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[d.active]
	if !ok {
		return model.Room{}, false
	}
	return r.info, true
}

func (d *Directory) Room(id string) (model.Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[id]
	if !ok {
		return model.Room{}, false
	}
	return r.info, true
}

func (d *Directory) Rooms() []model.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	rooms, _ := d.snapshotLocked()
	return rooms
}

// AddMessage направляет сообщение в ленту его комнаты. Эхо собственных
// отправленных сообщений и повторные ID отклоняются.
func (d *Directory) AddMessage(m model.Message) bool {
	d.mu.Lock()
	if _, mine := d.sent[m.ID]; mine {
		d.mu.Unlock()
		d.log.Debug("skip echo of own message", "message_id", m.ID)
		return false
	}
	r, ok := d.rooms[m.RoomID]
	if !ok {
		d.mu.Unlock()
		d.log.Debug("add message: unknown room", "room_id", m.RoomID, "message_id", m.ID)
		return false
	}
	at, ok := r.store.Insert(m)
	d.mu.Unlock()

	if ok {
		d.view.MessageInserted(m.RoomID, m, at)
	}
	return ok
}

// AddMessages - true, только если вставлены все; пустой список - false.
func (d *Directory) AddMessages(ms ...model.Message) bool {
	if len(ms) == 0 {
		return false
	}
	all := true
	for _, m := range ms {
		all = d.AddMessage(m) && all
	}
	return all
}

// AddSent вставляет локально созданное сообщение и запоминает его ID как своё.
func (d *Directory) AddSent(m model.Message) bool {
	d.mu.Lock()
	r, ok := d.rooms[m.RoomID]
	if !ok {
		d.mu.Unlock()
		d.log.Debug("send: room no longer exists", "room_id", m.RoomID)
		return false
	}
	at, ok := r.store.Insert(m)
	if ok {
		d.sent[m.ID] = struct{}{}
	}
	d.mu.Unlock()

	if ok {
		d.view.MessageInserted(m.RoomID, m, at)
	}
	return ok
}

// MergeHistory вливает страницу истории (от новых к старым). Уже присутствующие
// в ленте сообщения выкидываются из страницы до вставки; фильтр и вставка
// выполняются под одной блокировкой.
func (d *Directory) MergeHistory(roomID string, batch []model.Message) (MergeResult, bool) {
	type ins struct {
		m  model.Message
		at timeline.Inserted
	}

	d.mu.Lock()
	r, ok := d.rooms[roomID]
	if !ok {
		d.mu.Unlock()
		d.log.Debug("merge history: unknown room", "room_id", roomID)
		return MergeResult{}, false
	}

	var (
		res  MergeResult
		done = make([]ins, 0, len(batch))
	)
	for _, m := range batch {
		_, mine := d.sent[m.ID]
		if mine || r.store.Has(m.ID) {
			res.Duplicates++
			continue
		}
		if m.RoomID == "" {
			m.RoomID = roomID
		}
		if m.RoomID != roomID {
			d.log.Debug("merge history: foreign message", "room_id", roomID, "message_room_id", m.RoomID)
			continue
		}
		at, ok := r.store.Insert(m)
		if !ok {
			res.Duplicates++
			continue
		}
		res.Inserted++
		done = append(done, ins{m: m, at: at})
	}
	d.mu.Unlock()

	for _, x := range done {
		d.view.MessageInserted(roomID, x.m, x.at)
	}
	return res, true
}

// RemoveMessage - только локально, сервер не уведомляется.
func (d *Directory) RemoveMessage(messageID, roomID string) bool {
	if messageID == "" || roomID == "" {
		return false
	}

	d.mu.Lock()
	r, ok := d.rooms[roomID]
	if !ok {
		d.mu.Unlock()
		d.log.Debug("remove message: unknown room", "room_id", roomID, "message_id", messageID)
		return false
	}
	removed := r.store.Remove(messageID)
	d.mu.Unlock()

	if removed {
		d.view.MessageRemoved(roomID, messageID)
	}
	return removed
}

func (d *Directory) RemoveMessages(refs ...MessageRef) bool {
	if len(refs) == 0 {
		return false
	}
	all := true
	for _, ref := range refs {
		all = d.RemoveMessage(ref.MessageID, ref.RoomID) && all
	}
	return all
}

// HasMessage ищет в указанной комнате или, если roomID пуст, во всех.
func (d *Directory) HasMessage(messageID, roomID string) bool {
	_, ok := d.GetMessage(messageID, roomID)
	return ok
}

// GetMessage ищет в указанной комнате или, если roomID пуст, во всех (первое
// совпадение в порядке добавления комнат). Результат дополнен данными комнаты.
func (d *Directory) GetMessage(messageID, roomID string) (model.Located, bool) {
	if messageID == "" {
		return model.Located{}, false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if roomID != "" {
		r, ok := d.rooms[roomID]
		if !ok {
			return model.Located{}, false
		}
		return locate(r, messageID)
	}
	for _, id := range d.order {
		if loc, ok := locate(d.rooms[id], messageID); ok {
			return loc, true
		}
	}
	return model.Located{}, false
}

// Timeline - копия ленты комнаты.
func (d *Directory) Timeline(roomID string) []model.Message {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	return r.store.All()
}

// OnScroll передаёт позицию прокрутки ленте комнаты.
func (d *Directory) OnScroll(roomID string, scrollHeight, clientHeight, scrollTop float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.rooms[roomID]; ok {
		r.store.OnScroll(scrollHeight, clientHeight, scrollTop)
	}
}

// Sent - было ли сообщение отправлено этим клиентом.
func (d *Directory) Sent(messageID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sent[messageID]
	return ok
}

func (d *Directory) snapshotLocked() ([]model.Room, string) {
	out := make([]model.Room, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.rooms[id].info)
	}
	return out, d.active
}

func locate(r *room, messageID string) (model.Located, bool) {
	m, ok := r.store.Get(messageID)
	if !ok {
		return model.Located{}, false
	}
	m.RoomID = r.info.ID
	return model.Located{Message: m, RoomName: r.info.Name}, true
}

// ShowPickerIfEmpty открывает выбор комнаты на весь экран, если комнат нет.
func (d *Directory) ShowPickerIfEmpty() bool {
	d.mu.Lock()
	empty := len(d.order) == 0
	d.mu.Unlock()

	if empty {
		d.view.ShowRoomPicker(true)
	}
	return empty
}
