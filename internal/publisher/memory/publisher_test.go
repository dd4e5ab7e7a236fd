package memory

import (
	"context"
	"testing"
)

func TestPublishRecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()

	id, err := p.Publish(context.Background(), "form-events", map[string]any{"accepting": true})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "memory-1" {
		t.Fatalf("unexpected id %q", id)
	}

	if _, err := p.Publish(context.Background(), "form-events", "second"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs := p.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Topic != "form-events" {
		t.Fatalf("unexpected topic %q", msgs[0].Topic)
	}
	if msgs[1].Payload != "second" {
		t.Fatalf("unexpected payload %v", msgs[1].Payload)
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	p := New()
	if _, err := p.Publish(context.Background(), "t", "a"); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs := p.Messages()
	msgs[0].Topic = "mutated"

	if p.Messages()[0].Topic != "t" {
		t.Fatal("Messages must return a copy")
	}
}
