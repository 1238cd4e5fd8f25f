package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cwrk-planet/chat-service/internal/domain"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type ChatService interface {
	Send(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error)
	History(ctx context.Context, groupID string, userID int64, before string, limit int) ([]domain.ChatMessage, string, error)
}

type GroupService interface {
	Create(ctx context.Context, name string, creatorID int64) (*domain.Group, error)
	AddMember(ctx context.Context, groupID string, actorID, userID int64) error
	UserGroups(ctx context.Context, userID int64) ([]domain.Group, error)
}

type UserService interface {
	Search(ctx context.Context, substring string, limit int) ([]domain.User, error)
}

type Handler struct {
	chatSvc  ChatService
	groupSvc GroupService
	userSvc  UserService
}

func NewHandler(chat ChatService, groups GroupService, users UserService) *Handler {
	return &Handler{
		chatSvc:  chat,
		groupSvc: groups,
		userSvc:  users,
	}
}

// POST /groups
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if !readBody(w, r, &req) {
		return
	}

	g, err := h.groupSvc.Create(r.Context(), req.Name, httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(r.Context(), w, "handler.CreateGroup", err)
		return
	}

	httputil.Created(w, CreateGroupResponse{Success: true, GroupID: g.ID})
}

// GET /groups
func (h *Handler) UserGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupSvc.UserGroups(r.Context(), httpmw.UserIDFromCtx(r.Context()))
	if err != nil {
		writeError(r.Context(), w, "handler.UserGroups", err)
		return
	}
	httputil.OK(w, mapGroups(groups))
}

// POST /groups/{id}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if !readBody(w, r, &req) {
		return
	}
	uid, err := strconv.ParseInt(strings.TrimSpace(req.UserID), 10, 64)
	if err != nil || uid <= 0 {
		httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid user_id")
		return
	}

	err = h.groupSvc.AddMember(r.Context(), chi.URLParam(r, "id"), httpmw.UserIDFromCtx(r.Context()), uid)
	if errors.Is(err, domain.ErrAlreadyMember) {
		// повтор - не ошибка транспорта, а success=false
		httputil.OK(w, AddMemberResponse{Success: false})
		return
	}
	if err != nil {
		writeError(r.Context(), w, "handler.AddMember", err)
		return
	}
	httputil.OK(w, AddMemberResponse{Success: true})
}

// GET /groups/{id}/messages?before=&limit=
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			httputil.Error(r.Context(), w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	msgs, next, err := h.chatSvc.History(r.Context(), chi.URLParam(r, "id"), httpmw.UserIDFromCtx(r.Context()), q.Get("before"), limit)
	if err != nil {
		writeError(r.Context(), w, "handler.History", err)
		return
	}
	httputil.OK(w, mapHistory(msgs, next))
}

// POST /groups/{id}/messages
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if !readBody(w, r, &req) {
		return
	}

	id, _ := httpmw.IdentityFromCtx(r.Context())
	msg, err := h.chatSvc.Send(r.Context(), domain.ChatMessage{
		ID:       req.ID,
		GroupID:  chi.URLParam(r, "id"),
		UserID:   id.UserID,
		UserName: id.Name,
		Content:  req.Content,
	})
	if err != nil {
		writeError(r.Context(), w, "handler.PostMessage", err)
		return
	}
	httputil.Created(w, ws.MessagePayload(msg))
}

// GET /users/search?q=&limit=
func (h *Handler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	users, err := h.userSvc.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeError(r.Context(), w, "handler.SearchUsers", err)
		return
	}
	httputil.OK(w, mapUsers(users))
}

// readBody: тело не больше httputil.MaxBodyBytes; при ошибке ответ уже записан.
func readBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	status, err := httputil.ReadJSON(w, r, dst, httputil.MaxBodyBytes)
	if err == nil {
		return true
	}
	msg := "invalid json"
	if status == http.StatusRequestEntityTooLarge {
		msg = "request body too large"
	}
	httputil.Error(r.Context(), w, status, msg)
	return false
}
