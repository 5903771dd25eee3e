package embeddedmqtt

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewModuleAuthModes(t *testing.T) {
	if _, err := NewModule(zap.NewNop(), Config{AllowAnonymous: true}); err != nil {
		t.Fatalf("anonymous: %v", err)
	}
	if _, err := NewModule(zap.NewNop(), Config{Username: "remote", Password: "secret"}); err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if _, err := NewModule(zap.NewNop(), Config{}); err == nil {
		t.Fatalf("expected error without auth config")
	}
}

func TestInlineClientRoundTrip(t *testing.T) {
	module, err := NewModule(zap.NewNop(), Config{AllowAnonymous: true})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	client := module.Inline()

	type message struct {
		topic   string
		payload string
	}
	received := make(chan message, 4)
	if err := client.Subscribe("homewatch/session/#", 0, func(topic string, payload []byte) {
		received <- message{topic: topic, payload: string(payload)}
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := client.Publish("homewatch/session/cmd", 0, false, []byte("PAUS")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case msg := <-received:
		if msg.topic != "homewatch/session/cmd" || msg.payload != "PAUS" {
			t.Fatalf("unexpected message %+v", msg)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timeout waiting for message")
	}

	if err := client.Unsubscribe("homewatch/session/#"); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	_ = client.Publish("homewatch/session/cmd", 0, false, []byte("PLAY"))
	select {
	case msg := <-received:
		t.Fatalf("message after unsubscribe: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
	if err := client.Unsubscribe("never/subscribed"); err != nil {
		t.Fatalf("unsubscribe unknown: %v", err)
	}
}

func TestBrokerURL(t *testing.T) {
	if got := BrokerURL("127.0.0.1:1883"); got != "mqtt://127.0.0.1:1883" {
		t.Fatalf("unexpected url %q", got)
	}
}
