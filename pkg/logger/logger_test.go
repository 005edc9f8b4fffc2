package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFormat(FormatJSON)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Named("supervisor").Info(ctx, "event handled",
		String("user_id", "u1"),
		Float64("alpha", 0.46),
		Error(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "event handled" {
		t.Fatalf("unexpected msg: %v", rec["msg"])
	}
	if rec["component"] != "supervisor" {
		t.Fatalf("unexpected component: %v", rec["component"])
	}
	if rec["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", rec["error"])
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Fatalf("source should point at the caller, got %q", src)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("SetLevelString: %v", err)
	}
	Get().With(String("k", "v")).Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") || !strings.Contains(buf.String(), "k=v") {
		t.Fatalf("expected debug line with field, got %q", buf.String())
	}

	if err := SetLevelString("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error(context.Background(), "dropped")
	if l.Named("x") == nil {
		t.Fatal("named discard logger is nil")
	}
}

func TestRequestIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFormat(FormatJSON)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("expected empty id, got %q", got)
	}

	ctx := WithRequestID(context.Background(), "req-42")
	Get().Info(ctx, "event handled")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["requestID"] != "req-42" {
		t.Fatalf("expected requestID field, got %v", rec["requestID"])
	}
}

func TestDurationField(t *testing.T) {
	f := Duration("took", 1500*time.Millisecond)
	if f.Key != "took" || f.Value != "1.5s" {
		t.Fatalf("unexpected field: %+v", f)
	}
}
