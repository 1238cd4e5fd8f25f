// Package bridge превращает fire-and-forget точки входа native-хоста в
// ожидаемые вызовы поверх таблицы correlation ID.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/chat-service/internal/client/correlation"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

const DefaultCallTimeout = 30 * time.Second

var ErrCallTimeout = errors.New("bridge: host did not answer in time")

// Host - точки входа native-оболочки. Асинхронные методы отвечают позже
// через Bridge.Resolve/Bridge.Reject с тем же correlation ID.
type Host interface {
	UserID() string
	UserName() string

	SetLoaded()
	ShowLoadingDialog()
	HideLoadingDialog()
	ShowErrorDialog(title, message string, recoverable bool)

	PostMessage(encodedMessage string)

	RequestMessageHistory(encodedRequest, correlationID string)
	RequestUserGroups(correlationID string)
	SearchUsers(substring, correlationID string)
	CreateGroup(name, correlationID string)
	AddUserToGroup(userID, groupID, correlationID string)
}

type Config struct {
	CallTimeout time.Duration
}

type Bridge struct {
	host    Host
	calls   *correlation.Registry[string]
	timeout time.Duration
	log     *slog.Logger
}

func New(host Host, cfg Config, log *slog.Logger) *Bridge {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	return &Bridge{
		host:    host,
		calls:   correlation.NewRegistry[string](),
		timeout: cfg.CallTimeout,
		log:     logger.Component(log, "bridge"),
	}
}

// Resolve - ответ хоста: base64 payload для вызова id. Поздние и повторные ответы игнорируются.
func (b *Bridge) Resolve(id, payload string) {
	if !b.calls.Resolve(id, payload) {
		b.log.Debug("resolve for unknown correlation id", "correlation_id", id)
	}
}

// Reject - хост сообщает об ошибке вызова id.
func (b *Bridge) Reject(id, reason string) {
	if !b.calls.Reject(id, &correlation.Rejection{ID: id, Reason: reason}) {
		b.log.Debug("reject for unknown correlation id", "correlation_id", id)
	}
}

// Pending - число вызовов, ожидающих ответа хоста.
func (b *Bridge) Pending() int { return b.calls.Pending() }

func (b *Bridge) UserID() string   { return b.host.UserID() }
func (b *Bridge) UserName() string { return b.host.UserName() }
func (b *Bridge) SetLoaded()       { b.host.SetLoaded() }
func (b *Bridge) ShowLoading()     { b.host.ShowLoadingDialog() }
func (b *Bridge) HideLoading()     { b.host.HideLoadingDialog() }

func (b *Bridge) ShowError(title, message string, recoverable bool) {
	b.host.ShowErrorDialog(title, message, recoverable)
}

// call регистрирует ID, дёргает хост и ждёт ответ не дольше timeout.
// По таймауту запись снимается через Reject, поздний ответ хоста станет no-op.
func (b *Bridge) call(ctx context.Context, invoke func(id string)) (string, error) {
	id := correlation.NewID()
	fut, err := b.calls.Register(id)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	invoke(id)

	payload, err := fut.Wait(ctx)
	if err == nil {
		return payload, nil
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w (%s)", ErrCallTimeout, b.timeout)
		}
		b.calls.Reject(id, err)
	}
	return "", err
}

// fail логирует ошибку вызова и, если задан title, показывает диалог.
func (b *Bridge) fail(op string, err error, title, message string, recoverable bool, args ...any) {
	if errors.Is(err, context.Canceled) {
		b.log.Debug(op+" canceled", args...)
		return
	}
	b.log.Warn(op+" failed", append(args, slog.Any("err", err))...)
	if title != "" {
		b.host.ShowErrorDialog(title, message, recoverable)
	}
}
