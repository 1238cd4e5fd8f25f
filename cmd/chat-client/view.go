package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/client/timeline"
)

// termView печатает изменения ленты в терминал. Показывается только активная комната.
type termView struct {
	mu     sync.Mutex
	out    io.Writer
	active string
}

func newTermView(out io.Writer) *termView {
	return &termView{out: out}
}

func (v *termView) RoomsChanged(rooms []model.Room, activeID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if activeID != v.active && activeID != "" {
		for _, r := range rooms {
			if r.ID == activeID {
				fmt.Fprintf(v.out, "== %s (%s)\n", r.Name, r.ID)
			}
		}
	}
	v.active = activeID
}

func (v *termView) ShowRoomPicker(noRooms bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if noRooms {
		fmt.Fprintln(v.out, "no rooms yet: /create <name> or wait for an invite")
		return
	}
	fmt.Fprintln(v.out, "pick a room: /rooms, /join <id>")
}

func (v *termView) HideRoomPicker() {}

func (v *termView) MessageInserted(roomID string, m model.Message, _ timeline.Inserted) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if roomID != v.active {
		return
	}
	fmt.Fprintln(v.out, formatMessage(m))
}

func (v *termView) MessageRemoved(string, string) {}

func formatMessage(m model.Message) string {
	name := m.SenderName
	if name == "" {
		name = m.SenderID
	}
	ts := time.UnixMilli(m.CreatedAt).Format("15:04:05")
	return fmt.Sprintf("[%s] %s: %s", ts, name, strings.TrimSpace(m.Content))
}
