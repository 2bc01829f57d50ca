package console

import (
	"bytes"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	w.Log("JS_BaseWasm : Initialized")
	w.Print("hello world")
	w.Print("")
	w.Print("already terminated\n")

	want := "JS_BaseWasm : Initialized\nhello world\n\nalready terminated\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestZap(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	z := NewZap(zap.New(core))

	z.Print("guest text")
	z.Log("bridge text")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "guest text" || entries[0].ContextMap()["source"] != "guest" {
		t.Errorf("unexpected guest entry: %+v", entries[0])
	}
	if entries[1].Message != "bridge text" || entries[1].ContextMap()["source"] != "bridge" {
		t.Errorf("unexpected bridge entry: %+v", entries[1])
	}
}
