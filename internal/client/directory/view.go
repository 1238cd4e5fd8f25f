package directory

import (
	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/client/timeline"
)

// View - то, что рисует UI. Вызывается после снятия блокировки, поэтому
// может обращаться к Directory обратно.
type View interface {
	RoomsChanged(rooms []model.Room, activeID string)
	// ShowRoomPicker открывает выбор комнаты; noRooms - комнат не осталось, показать на весь экран.
	ShowRoomPicker(noRooms bool)
	HideRoomPicker()
	MessageInserted(roomID string, m model.Message, at timeline.Inserted)
	MessageRemoved(roomID, messageID string)
}

type NopView struct{}

func (NopView) RoomsChanged([]model.Room, string)                         {}
func (NopView) ShowRoomPicker(bool)                                       {}
func (NopView) HideRoomPicker()                                           {}
func (NopView) MessageInserted(string, model.Message, timeline.Inserted) {}
func (NopView) MessageRemoved(string, string)                            {}
