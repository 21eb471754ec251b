package mail

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNotifier_Registered(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	n := NewNotifier(NewSender(logger), logger)

	body := []byte(`{"user_id":"u1","username":"kim","email":"kim@x.com","via":"kakao"}`)
	if err := n.Handle(context.Background(), "user.registered", body); err != nil {
		t.Fatal(err)
	}
	sent := logs.FilterMessage("mail sent").All()
	if len(sent) != 1 {
		t.Fatalf("mails = %d", len(sent))
	}
	fields := sent[0].ContextMap()
	if fields["subject"] != "Welcome to selectshop" {
		t.Fatalf("fields = %v", fields)
	}
	if fields["to_hash"] == "kim@x.com" {
		t.Fatal("raw email logged")
	}
}

func TestNotifier_MalformedAndUnknown(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	n := NewNotifier(NewSender(logger), logger)

	if err := n.Handle(context.Background(), "user.registered", []byte(`{`)); err != nil {
		t.Fatalf("malformed must be dropped: %v", err)
	}
	if err := n.Handle(context.Background(), "user.loggedin", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if logs.FilterMessage("mail sent").Len() != 0 {
		t.Fatal("no mail expected")
	}
	if logs.FilterMessage("drop malformed event").Len() != 1 {
		t.Fatal("malformed event not reported")
	}
}
