// Package nativehost - headless реализация точек входа native-оболочки
// поверх HTTP API chat-service. Ответы приходят в bridge как base64 wire payload.
package nativehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/internal/wire"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

var ErrNotAttached = errors.New("nativehost: responder not attached")

// Responder - Bridge.Resolve / Bridge.Reject.
type Responder interface {
	Resolve(id, payload string)
	Reject(id, reason string)
}

type Config struct {
	BaseURL  string // http://localhost:8080
	Token    string // Bearer; пусто - dev-заголовки X-User-ID/X-User-Name
	UserID   string
	UserName string
	Timeout  time.Duration
	Client   *http.Client
}

type Host struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger

	mu   sync.RWMutex
	resp Responder

	wg       sync.WaitGroup
	loaded   chan struct{}
	loadOnce sync.Once
}

func New(cfg Config, log *slog.Logger) *Host {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Host{
		cfg:    cfg,
		client: client,
		log:    logger.Component(log, "nativehost"),
		loaded: make(chan struct{}),
	}
}

// Attach подключает адресата ответов. Вызывается до первого запроса.
func (h *Host) Attach(r Responder) {
	h.mu.Lock()
	h.resp = r
	h.mu.Unlock()
}

// Wait ждёт завершения запросов в полёте.
func (h *Host) Wait() { h.wg.Wait() }

// Loaded закрывается после SetLoaded.
func (h *Host) Loaded() <-chan struct{} { return h.loaded }

func (h *Host) UserID() string   { return h.cfg.UserID }
func (h *Host) UserName() string { return h.cfg.UserName }

func (h *Host) SetLoaded() {
	h.loadOnce.Do(func() { close(h.loaded) })
	h.log.Info("client loaded")
}

func (h *Host) ShowLoadingDialog() { h.log.Debug("loading...") }
func (h *Host) HideLoadingDialog() { h.log.Debug("loading done") }

func (h *Host) ShowErrorDialog(title, message string, recoverable bool) {
	h.log.Error(title, "message", message, "recoverable", recoverable)
}

// PostMessage - fire-and-forget, эхо придёт через live-поток.
func (h *Host) PostMessage(encoded string) {
	var m wire.ChatMessage
	if err := wire.Decode(encoded, &m); err != nil {
		h.log.Warn("post message: bad payload", "err", err)
		return
	}
	h.async("", func(ctx context.Context) (string, error) {
		path := "/groups/" + url.PathEscape(m.RoomID) + "/messages"
		return "", h.do(ctx, "", http.MethodPost, path, httpx.PostMessageRequest{ID: m.ID, Content: m.Content}, nil)
	})
}

func (h *Host) RequestMessageHistory(encoded, id string) {
	h.async(id, func(ctx context.Context) (string, error) {
		var req wire.GetMessagesRequest
		if err := wire.Decode(encoded, &req); err != nil {
			return "", err
		}
		q := url.Values{}
		if req.Before != "" {
			q.Set("before", req.Before)
		}
		if req.Limit > 0 {
			q.Set("limit", strconv.FormatInt(req.Limit, 10))
		}
		path := "/groups/" + url.PathEscape(req.GroupID) + "/messages"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var resp httpx.HistoryResponse
		if err := h.do(ctx, id, http.MethodGet, path, nil, &resp); err != nil {
			return "", err
		}
		out := wire.GetMessagesResponse{NextCursor: resp.NextCursor}
		for _, m := range resp.Messages {
			out.Messages = append(out.Messages, messageToWire(m))
		}
		return wire.Encode(&out), nil
	})
}

func (h *Host) RequestUserGroups(id string) {
	h.async(id, func(ctx context.Context) (string, error) {
		var resp httpx.GroupsResponse
		if err := h.do(ctx, id, http.MethodGet, "/groups", nil, &resp); err != nil {
			return "", err
		}
		var out wire.GetUserGroupsResponse
		for _, g := range resp.Groups {
			out.Groups = append(out.Groups, wire.GroupInfo{ID: g.ID, GroupName: g.Name})
		}
		return wire.Encode(&out), nil
	})
}

func (h *Host) SearchUsers(substring, id string) {
	h.async(id, func(ctx context.Context) (string, error) {
		var resp httpx.UsersResponse
		path := "/users/search?" + url.Values{"q": {substring}}.Encode()
		if err := h.do(ctx, id, http.MethodGet, path, nil, &resp); err != nil {
			return "", err
		}
		var out wire.SearchUsersResponse
		for _, u := range resp.Users {
			out.Users = append(out.Users, wire.UserInfo{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
		}
		return wire.Encode(&out), nil
	})
}

func (h *Host) CreateGroup(name, id string) {
	h.async(id, func(ctx context.Context) (string, error) {
		var resp httpx.CreateGroupResponse
		if err := h.do(ctx, id, http.MethodPost, "/groups", httpx.CreateGroupRequest{Name: name}, &resp); err != nil {
			return "", err
		}
		out := wire.CreateGroupResponse{Success: resp.Success, GroupID: resp.GroupID}
		return wire.Encode(&out), nil
	})
}

func (h *Host) AddUserToGroup(userID, groupID, id string) {
	h.async(id, func(ctx context.Context) (string, error) {
		var resp httpx.AddMemberResponse
		path := "/groups/" + url.PathEscape(groupID) + "/members"
		if err := h.do(ctx, id, http.MethodPost, path, httpx.AddMemberRequest{UserID: userID}, &resp); err != nil {
			return "", err
		}
		out := wire.AddUserToGroupResponse{Success: resp.Success}
		return wire.Encode(&out), nil
	})
}

// async выполняет запрос в отдельной горутине и отвечает bridge по id.
// Пустой id - ответа не ждут, ошибки только в лог.
func (h *Host) async(id string, fn func(ctx context.Context) (string, error)) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Timeout)
		defer cancel()

		payload, err := fn(ctx)
		if id == "" {
			if err != nil {
				h.log.Warn("host call failed", "err", err)
			}
			return
		}

		h.mu.RLock()
		r := h.resp
		h.mu.RUnlock()
		if r == nil {
			h.log.Error("drop host answer", "correlation_id", id, "err", ErrNotAttached)
			return
		}
		if err != nil {
			r.Reject(id, err.Error())
			return
		}
		r.Resolve(id, payload)
	}()
}

func (h *Host) do(ctx context.Context, reqID, method, path string, body, dst any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.cfg.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if reqID != "" {
		req.Header.Set(httputil.HeaderRequestID, reqID)
	}
	if h.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.Token)
	} else {
		req.Header.Set("X-User-ID", h.cfg.UserID)
		req.Header.Set("X-User-Name", h.cfg.UserName)
	}

	res, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return err
	}
	msg, err := httputil.Decode(data, dst)
	if err != nil {
		return fmt.Errorf("%s %s: status %d: %w", method, path, res.StatusCode, err)
	}
	if res.StatusCode >= 300 || msg != "" {
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, res.StatusCode, msg)
	}
	return nil
}

func messageToWire(m ws.ChatMessagePayload) wire.ChatMessage {
	return wire.ChatMessage{
		ID:         m.ID,
		RoomID:     m.RoomID,
		UserID:     m.UserID,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UserName:   m.UserName,
		ModifiedAt: m.ModifiedAt,
	}
}
