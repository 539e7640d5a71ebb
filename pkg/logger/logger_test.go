package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithContextAddsRequestAndActor(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(Config{Level: "debug", Format: "json"}, &buf); err != nil {
		t.Fatalf("init: %v", err)
	}

	ctx := ContextWithActor(ContextWithRequestID(context.Background(), "req-1"), "cashier-7")
	Info(ctx, "sale completed", "invoice_no", "INV20260101001")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if entry["actor_id"] != "cashier-7" {
		t.Errorf("actor_id = %v", entry["actor_id"])
	}
	if entry["invoice_no"] != "INV20260101001" {
		t.Errorf("invoice_no = %v", entry["invoice_no"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(Config{Level: "warn", Format: "text"}, &buf); err != nil {
		t.Fatalf("init: %v", err)
	}
	Debug(context.Background(), "hidden")
	Info(context.Background(), "hidden too")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	Warn(context.Background(), "visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}
