package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

func TestAttachmentKey(t *testing.T) {
	tests := map[string]string{
		"brief.pdf":         "research-books/3/legal-information/9/brief.pdf",
		"../../etc/passwd":  "research-books/3/legal-information/9/passwd",
		`C:\docs\brief.pdf`: "research-books/3/legal-information/9/brief.pdf",
		"  ":                "research-books/3/legal-information/9/document",
	}
	for in, want := range tests {
		if got := AttachmentKey(3, 9, in); got != want {
			t.Fatalf("AttachmentKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.PresignGet(ctx, "missing", "", time.Minute); err != ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k", strings.NewReader("body"), 4, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	r, contentType, ok := s.Get("k")
	if !ok || contentType != "text/plain" {
		t.Fatalf("unexpected get: ok=%v contentType=%q", ok, contentType)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "body" {
		t.Fatalf("unexpected body %q", data)
	}
	u, err := s.PresignGet(ctx, "k", "k.txt", time.Minute)
	if err != nil || !strings.HasPrefix(u, "memory://k") {
		t.Fatalf("unexpected presign: %q err=%v", u, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, ok := s.Get("k"); ok {
		t.Fatalf("expected object to be deleted")
	}
}
