package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/cwrk-planet/chat-service/pkg/logger"
)

func TestDetectEnv(t *testing.T) {
	t.Setenv("CHAT_ENV", "")
	t.Setenv("APP_ENV", "")
	assert.Equal(t, logger.EnvDev, logger.DetectEnv())

	t.Setenv("APP_ENV", "staging")
	assert.Equal(t, logger.EnvStage, logger.DetectEnv())

	t.Setenv("APP_ENV", "production")
	assert.Equal(t, logger.EnvProd, logger.DetectEnv())

	t.Setenv("CHAT_ENV", "preprod")
	assert.Equal(t, logger.EnvStage, logger.DetectEnv())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("whatever"))
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := logger.Init(logger.Config{
		Service: "chat-service",
		Version: "v0.0.1",
		Env:     logger.EnvDev,
		Backend: logger.BackendStd,
		Level:   slog.LevelDebug,
		Output:  &buf,
	})
	l.Info("hello world")

	out := buf.String()
	assert.NotContains(t, out, "{")
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "service=chat-service")
	assert.Contains(t, out, "env=dev")
}

func TestInit_ProdZap_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := logger.Init(logger.Config{
		Service:          "chat-service",
		Version:          "1.2.3",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		Level:            slog.LevelInfo,
		Output:           &buf,
		SampleInitial:    100000,
		SampleThereafter: 100000,
	})
	l.Info("booted", slog.String("k", "v"))

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &m), buf.String())
	assert.Equal(t, "booted", m["msg"])
	assert.Equal(t, "chat-service", m["service"])
	assert.Equal(t, "prod", m["env"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "INFO", m["level"])
	assert.Equal(t, "v", m["k"])
}

func TestAttrsFromCtx(t *testing.T) {
	assert.Empty(t, logger.AttrsFromCtx(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	l := logger.Init(logger.Config{
		Service:          "chat-service",
		Env:              logger.EnvProd,
		Backend:          logger.BackendZap,
		Output:           &buf,
		SampleInitial:    100000,
		SampleThereafter: 100000,
	})
	l.InfoContext(ctx, "with trace", logger.ArgsFromCtx(ctx)...)

	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &m), buf.String())
	assert.Equal(t, span.SpanContext().TraceID().String(), m["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), m["span_id"])
}
