package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/security"
	httpmw "github.com/cwrk-planet/chat-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"
	"github.com/cwrk-planet/chat-service/pkg/httputil"
)

type fakeChat struct {
	sent    []domain.ChatMessage
	history []domain.ChatMessage
	err     error
}

func (f *fakeChat) Send(_ context.Context, m domain.ChatMessage) (*domain.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, m)
	m.CreatedAt = time.UnixMilli(1000)
	return &m, nil
}

func (f *fakeChat) History(_ context.Context, groupID string, userID int64, before string, limit int) ([]domain.ChatMessage, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.history, "next-1", nil
}

type fakeGroups struct {
	added map[int64]bool
}

func (f *fakeGroups) Create(_ context.Context, name string, creatorID int64) (*domain.Group, error) {
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	return &domain.Group{ID: "g-new", Name: name, CreatedBy: creatorID}, nil
}

func (f *fakeGroups) AddMember(_ context.Context, groupID string, actorID, userID int64) error {
	if groupID == "missing" {
		return domain.ErrGroupNotFound
	}
	if f.added[userID] {
		return domain.ErrAlreadyMember
	}
	f.added[userID] = true
	return nil
}

func (f *fakeGroups) UserGroups(_ context.Context, userID int64) ([]domain.Group, error) {
	return []domain.Group{{ID: "g1", Name: "general"}}, nil
}

type fakeUsers struct{}

func (fakeUsers) Search(_ context.Context, q string, _ int) ([]domain.User, error) {
	if q == "" {
		return []domain.User{}, nil
	}
	return []domain.User{{ID: 5, DisplayName: "Ann", Email: "ann@example.com"}}, nil
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, chat *fakeChat, limiter *httpmw.RateLimiter, health HealthChecker) http.Handler {
	t.Helper()
	h := NewHandler(chat, &fakeGroups{added: map[int64]bool{}}, fakeUsers{})
	return NewRouter(Deps{
		Handler: h,
		Auth:    security.NewAuthenticator(nil),
		Limiter: limiter,
		Health:  health,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-User-ID", "1")
	req.Header.Set("X-User-Name", "Ann")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) string {
	t.Helper()
	msg, err := httputil.Decode(rec.Body.Bytes(), dst)
	require.NoError(t, err)
	return msg
}

func TestRouter_Health(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := newTestRouter(t, &fakeChat{}, nil, pingFunc(func(context.Context) error { return errors.New("db down") }))
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, nil, nil)
	do(t, h, http.MethodGet, "/groups", "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_http_requests_total")
}

func TestRouter_RequiresAuth(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, nil, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Groups(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, nil, nil)

	rec := do(t, h, http.MethodPost, "/groups", `{"name":"team"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created CreateGroupResponse
	decode(t, rec, &created)
	assert.Equal(t, CreateGroupResponse{Success: true, GroupID: "g-new"}, created)

	rec = do(t, h, http.MethodPost, "/groups", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/groups", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var groups GroupsResponse
	decode(t, rec, &groups)
	assert.Equal(t, []GroupItem{{ID: "g1", Name: "general"}}, groups.Groups)
}

func TestRouter_AddMember(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, nil, nil)

	var resp AddMemberResponse
	rec := do(t, h, http.MethodPost, "/groups/g1/members", `{"user_id":"7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.True(t, resp.Success)

	rec = do(t, h, http.MethodPost, "/groups/g1/members", `{"user_id":"7"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &resp)
	assert.False(t, resp.Success)

	rec = do(t, h, http.MethodPost, "/groups/missing/members", `{"user_id":"8"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/groups/g1/members", `{"user_id":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Messages(t *testing.T) {
	chat := &fakeChat{history: []domain.ChatMessage{{ID: "m1", GroupID: "g1", UserID: 2, Content: "hi", CreatedAt: time.UnixMilli(5)}}}
	h := newTestRouter(t, chat, nil, nil)

	rec := do(t, h, http.MethodPost, "/groups/g1/messages", `{"id":"c1","content":"yo"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var posted ws.ChatMessagePayload
	decode(t, rec, &posted)
	assert.Equal(t, "c1", posted.ID)
	assert.Equal(t, "g1", posted.RoomID)
	assert.Equal(t, "1", posted.UserID)
	require.Len(t, chat.sent, 1)
	assert.Equal(t, "Ann", chat.sent[0].UserName)

	rec = do(t, h, http.MethodGet, "/groups/g1/messages?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist HistoryResponse
	decode(t, rec, &hist)
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, "m1", hist.Messages[0].ID)
	assert.Equal(t, int64(5), hist.Messages[0].CreatedAt)
	assert.Equal(t, "next-1", hist.NextCursor)

	rec = do(t, h, http.MethodGet, "/groups/g1/messages?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MessageErrors(t *testing.T) {
	chat := &fakeChat{err: domain.ErrNotMember}
	h := newTestRouter(t, chat, nil, nil)

	rec := do(t, h, http.MethodGet, "/groups/g1/messages", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	chat.err = errors.New("pool closed")
	rec = do(t, h, http.MethodPost, "/groups/g1/messages", `{"content":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), decode(t, rec, nil))
}

func TestRouter_RateLimitOnPost(t *testing.T) {
	limiter := httpmw.NewRateLimiter(httpmw.RateLimiterOptions{Limit: 0.001, Burst: 1})
	h := newTestRouter(t, &fakeChat{}, limiter, nil)

	assert.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/groups/g1/messages", `{"content":"a"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/groups/g1/messages", `{"content":"b"}`).Code)
	// чтение истории не лимитируется
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/groups/g1/messages", "").Code)
}

func TestRouter_SearchUsers(t *testing.T) {
	h := newTestRouter(t, &fakeChat{}, nil, nil)

	rec := do(t, h, http.MethodGet, "/users/search?q=an", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var users UsersResponse
	decode(t, rec, &users)
	assert.Equal(t, []UserItem{{ID: "5", DisplayName: "Ann", Email: "ann@example.com"}}, users.Users)

	rec = do(t, h, http.MethodGet, "/users/search", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.JSONEq(t, `{"users":[]}`, string(raw["data"]))
}

func TestRouter_BodyLimit(t *testing.T) {
	chat := &fakeChat{}
	h := newTestRouter(t, chat, nil, nil)

	big := `{"content":"` + strings.Repeat("a", int(httputil.MaxBodyBytes)) + `"}`
	rec := do(t, h, http.MethodPost, "/groups/g1/messages", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "request body too large", decode(t, rec, nil))
	assert.Empty(t, chat.sent)

	rec = do(t, h, http.MethodPost, "/groups", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", decode(t, rec, nil))
}
