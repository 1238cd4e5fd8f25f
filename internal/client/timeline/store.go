// Package timeline - упорядоченная лента сообщений одной комнаты.
package timeline

import (
	"slices"
	"sort"

	"github.com/cwrk-planet/chat-service/internal/client/model"
)

// PinThreshold - расстояние до низа (в единицах layout), при котором вид считается прижатым.
const PinThreshold = 8

// Inserted описывает результат Insert.
type Inserted struct {
	Index int
	// AutoScroll - вид был прижат к низу до вставки, после рендера нужно докрутить.
	AutoScroll bool
}

// Store держит сообщения по возрастанию (CreatedAt, ID). Не потокобезопасен:
// владелец (directory) сериализует доступ.
type Store struct {
	items  []model.Message
	ids    map[string]struct{}
	pinned bool
}

func New() *Store {
	return &Store{
		ids:    make(map[string]struct{}),
		pinned: true,
	}
}

// Insert ставит сообщение сразу после самого правого элемента, который меньше его.
// Повторный ID отклоняется, размер ленты не меняется.
func (s *Store) Insert(m model.Message) (Inserted, bool) {
	if m.ID == "" {
		return Inserted{}, false
	}
	if _, dup := s.ids[m.ID]; dup {
		return Inserted{}, false
	}

	idx := sort.Search(len(s.items), func(i int) bool {
		return !model.Less(s.items[i], m)
	})
	s.items = slices.Insert(s.items, idx, m)
	s.ids[m.ID] = struct{}{}

	return Inserted{Index: idx, AutoScroll: s.pinned}, true
}

// Remove убирает сообщение только локально.
func (s *Store) Remove(id string) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	i := s.indexOf(id)
	s.items = slices.Delete(s.items, i, i+1)
	delete(s.ids, id)
	return true
}

func (s *Store) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Store) Get(id string) (model.Message, bool) {
	if !s.Has(id) {
		return model.Message{}, false
	}
	return s.items[s.indexOf(id)], true
}

func (s *Store) Len() int { return len(s.items) }

// All - копия ленты в порядке отображения.
func (s *Store) All() []model.Message {
	return slices.Clone(s.items)
}

// Latest - самое новое сообщение.
func (s *Store) Latest() (model.Message, bool) {
	if len(s.items) == 0 {
		return model.Message{}, false
	}
	return s.items[len(s.items)-1], true
}

// OnScroll пересчитывает pin по близости к низу при каждом пользовательском скролле.
func (s *Store) OnScroll(scrollHeight, clientHeight, scrollTop float64) {
	s.pinned = scrollHeight-clientHeight-scrollTop < PinThreshold
}

func (s *Store) Pinned() bool { return s.pinned }

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(m model.Message) bool { return m.ID == id })
}
