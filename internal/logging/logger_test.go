// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(Config{})

	Info().Str("customer_id", "CUST1").Msg("order stored")

	out := buf.String()
	for _, want := range []string{`"message":"order stored"`, `"level":"info"`, `"customer_id":"CUST1"`, `"service":"orderwise"`, `"time":`} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	defer Init(Config{})

	Info().Msg("hidden")
	Warn().Msg("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("info event written at warn level: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn event missing: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"Warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"loud", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})
	defer Init(Config{})

	logger := WithComponent("orders")
	logger.Info().Msg("component log")

	if !strings.Contains(buf.String(), `"component":"orders"`) {
		t.Errorf("expected component field, got: %s", buf.String())
	}
}

func TestCtx_CarriesRequestAndCustomer(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), NewTestLogger(&buf))
	ctx = ContextWithRequestID(ctx, "req-123")
	ctx = ContextWithCustomerID(ctx, "CUST9")

	Ctx(ctx).Info().Msg("with context")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) || !strings.Contains(out, `"customer_id":"CUST9"`) {
		t.Errorf("context fields missing: %s", out)
	}
	if RequestIDFromContext(context.Background()) != "" || CustomerIDFromContext(context.Background()) != "" {
		t.Error("expected empty ids from a bare context")
	}
}

func TestSlogLogger_WritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Output: &buf})
	defer Init(Config{})

	NewSlogLogger().
		With("tree", "orderwise").
		WithGroup("svc").
		Warn("service restarted", "name", "http-server", "attempt", 2, "err", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`, `"tree":"orderwise"`, `"svc.name":"http-server"`,
		`"svc.attempt":2`, `"svc.err":"boom"`, `"component":"runtime"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %s missing %s", out, want)
		}
	}
}

func TestSlogLogger_RespectsGlobalLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "error", Output: &buf})
	defer Init(Config{})

	slogger := NewSlogLogger()
	if slogger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at error level")
	}
	slogger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
