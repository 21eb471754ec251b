package log

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_InstallsGlobal(t *testing.T) {
	prev := L
	t.Cleanup(func() { L = prev })

	l, err := Init(false)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if L != l || zap.L() != l {
		t.Fatal("logger not installed globally")
	}
}

func TestWithDD_NoSpanKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	WithDD(context.Background(), base, zap.String("route", "/x")).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/x" {
		t.Fatalf("fields = %v", fields)
	}
	if _, ok := fields["dd.trace_id"]; ok {
		t.Fatal("trace id without a span")
	}
}
