package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/client/model"
)

type command struct {
	name string
	args []string
	text string // строка целиком, если это не команда
}

func parseLine(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return command{}, false
	}
	if !strings.HasPrefix(line, "/") {
		return command{text: line}, true
	}
	fields := strings.Fields(line)
	cmd := command{name: strings.TrimPrefix(fields[0], "/"), args: fields[1:]}
	if cmd.name == "create" || cmd.name == "search" {
		// имя группы и запрос могут содержать пробелы
		cmd.args = []string{strings.TrimSpace(strings.TrimPrefix(line, fields[0]))}
	}
	return cmd, true
}

type roomController interface {
	Rooms() []model.Room
	ActiveRoom() (model.Room, bool)
	AddRoom(r model.Room) bool
	SwitchToRoom(id string) bool
	Send(content string) (model.Message, bool)
}

type groupAPI interface {
	CreateGroup(ctx context.Context, name string) model.CreatedGroup
	AddUserToGroup(ctx context.Context, userID, groupID string) bool
}

type searcher interface {
	Input(substring string)
}

type shell struct {
	ctrl   roomController
	groups groupAPI
	search searcher
	out    io.Writer
}

// exec выполняет одну строку; false - пора выходить.
func (s *shell) exec(ctx context.Context, cmd command) bool {
	if cmd.name == "" {
		if _, ok := s.ctrl.Send(cmd.text); !ok {
			fmt.Fprintln(s.out, "not sent: join a room first")
		}
		return true
	}

	switch cmd.name {
	case "quit", "exit":
		return false
	case "rooms":
		active, _ := s.ctrl.ActiveRoom()
		for _, r := range s.ctrl.Rooms() {
			mark := " "
			if r.ID == active.ID {
				mark = "*"
			}
			fmt.Fprintf(s.out, "%s %s  %s\n", mark, r.ID, r.Name)
		}
	case "join":
		if len(cmd.args) != 1 {
			fmt.Fprintln(s.out, "usage: /join <room id>")
			break
		}
		if !s.ctrl.SwitchToRoom(cmd.args[0]) {
			fmt.Fprintln(s.out, "unknown room", cmd.args[0])
		}
	case "create":
		if len(cmd.args) != 1 || cmd.args[0] == "" {
			fmt.Fprintln(s.out, "usage: /create <name>")
			break
		}
		res := s.groups.CreateGroup(ctx, cmd.args[0])
		if !res.Success {
			break
		}
		s.ctrl.AddRoom(model.Room{ID: res.GroupID, Name: cmd.args[0]})
		s.ctrl.SwitchToRoom(res.GroupID)
	case "add":
		if len(cmd.args) != 2 {
			fmt.Fprintln(s.out, "usage: /add <user id> <room id>")
			break
		}
		if s.groups.AddUserToGroup(ctx, cmd.args[0], cmd.args[1]) {
			fmt.Fprintf(s.out, "added %s to %s\n", cmd.args[0], cmd.args[1])
		} else {
			fmt.Fprintln(s.out, "not added")
		}
	case "search":
		if len(cmd.args) == 1 {
			s.search.Input(cmd.args[0])
		}
	default:
		fmt.Fprintln(s.out, "commands: /rooms /join /create /add /search /quit")
	}
	return true
}

func printUsers(out io.Writer, q string, users []model.User) {
	if len(users) == 0 {
		fmt.Fprintf(out, "no users for %q\n", q)
		return
	}
	for _, u := range users {
		fmt.Fprintf(out, "  %s  %s <%s>\n", u.ID, u.DisplayName, u.Email)
	}
}
