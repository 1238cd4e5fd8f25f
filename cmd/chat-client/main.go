package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/cwrk-planet/chat-service/internal/client/bridge"
	"github.com/cwrk-planet/chat-service/internal/client/directory"
	"github.com/cwrk-planet/chat-service/internal/client/live"
	"github.com/cwrk-planet/chat-service/internal/client/model"
	"github.com/cwrk-planet/chat-service/internal/client/nativehost"
	"github.com/cwrk-planet/chat-service/internal/client/reconcile"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/pkg/logger"
)

func main() {
	var (
		server      = pflag.String("server", "http://localhost:8080", "chat-service base URL")
		token       = pflag.String("token", os.Getenv("CHAT_TOKEN"), "access token (Bearer)")
		signKey     = pflag.String("sign-key", "", "RSA private key to mint a dev token instead of --token")
		issuer      = pflag.String("issuer", "cwrk-auth", "issuer for --sign-key tokens")
		userID      = pflag.String("user-id", "", "user id")
		userName    = pflag.String("user-name", "", "display name")
		callTimeout = pflag.Duration("call-timeout", bridge.DefaultCallTimeout, "max wait for a host answer")
		debug       = pflag.Bool("debug", false, "debug logging")
	)
	pflag.Parse()

	lg := logger.Init(logger.Config{
		Service: "chat-client",
		Env:     logger.EnvDev,
		Backend: logger.BackendStd,
		Debug:   *debug,
		Output:  os.Stderr,
	})

	if *userID == "" {
		log.Fatal("--user-id is required")
	}
	if *signKey != "" {
		tok, err := mintToken(*signKey, *issuer, *userID, *userName)
		if err != nil {
			log.Fatalf("sign token: %v", err)
		}
		*token = tok
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	host := nativehost.New(nativehost.Config{
		BaseURL:  *server,
		Token:    *token,
		UserID:   *userID,
		UserName: *userName,
	}, lg)
	br := bridge.New(host, bridge.Config{CallTimeout: *callTimeout}, lg)
	host.Attach(br)

	wsURL, err := liveURL(*server, *token, *userID)
	if err != nil {
		log.Fatalf("server url: %v", err)
	}
	lv := live.NewManager(live.Config{URL: wsURL, Token: *token}, nil, lg)

	dir := directory.New(newTermView(os.Stdout), lg)
	ctrl := reconcile.New(dir, br, lv, reconcile.Config{}, lg)
	lv.SetHandler(ctrl)

	go func() {
		if err := lv.Run(ctx); err != nil && ctx.Err() == nil {
			lg.Error("live stream stopped", "err", err)
		}
	}()
	waitConnected(ctx, lv, 3*time.Second)

	ctrl.Start(ctx)

	search := bridge.NewDebouncer(ctx, bridge.DefaultSearchDelay, br.SearchUsers, func(q string, users []model.User) {
		printUsers(os.Stdout, q, users)
	})
	defer search.Stop()

	sh := &shell{ctrl: ctrl, groups: br, search: search, out: os.Stdout}
	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			cmd, ok := parseLine(line)
			if !ok {
				continue
			}
			if !sh.exec(ctx, cmd) {
				return
			}
		}
	}
}

// liveURL: http(s)://host -> ws(s)://host/ws; без токена - dev-авторизация через user_id.
func liveURL(server, token, userID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	if token == "" {
		u.RawQuery = url.Values{"user_id": {userID}}.Encode()
	}
	return u.String(), nil
}

func waitConnected(ctx context.Context, lv *live.Manager, max time.Duration) {
	deadline := time.Now().Add(max)
	for !lv.Connected() && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func mintToken(keyPath, issuer, userID, name string) (string, error) {
	key, err := security.LoadRSAPrivateKeyFromPEM(keyPath)
	if err != nil {
		return "", err
	}
	var id int64
	if _, err := fmt.Sscan(userID, &id); err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	return security.NewJWTSigner(key, issuer, "", time.Hour).SignAccessToken(id, name, time.Now())
}
