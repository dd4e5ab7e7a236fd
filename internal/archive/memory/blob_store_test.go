package memory

import (
	"context"
	"testing"
)

func TestPutObjectAndGet(t *testing.T) {
	t.Parallel()

	store := New()
	uri, err := store.PutObject(context.Background(), "snap.html", "text/html", []byte("<form>"))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://snap.html" {
		t.Fatalf("unexpected uri %q", uri)
	}

	data, ok := store.Get("snap.html")
	if !ok || string(data) != "<form>" {
		t.Fatalf("expected stored content, got %q ok=%v", data, ok)
	}

	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected miss for unknown path")
	}
}

func TestPutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := New()
	body := []byte("original")
	if _, err := store.PutObject(context.Background(), "snap", "text/html", body); err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	body[0] = 'X'

	data, _ := store.Get("snap")
	if string(data) != "original" {
		t.Fatalf("store must not alias caller buffer, got %q", data)
	}
}
