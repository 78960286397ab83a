package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestFSStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "/assets/")
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put(ctx, "studyaids/s1/./flash.json", strings.NewReader(`{"cards":[]}`))
	if err != nil {
		t.Fatal(err)
	}
	if key != "studyaids/s1/flash.json" {
		t.Fatalf("key = %q", key)
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != `{"cards":[]}` {
		t.Fatalf("content = %s", b)
	}
	if got := s.URL(key); got != "/assets/studyaids/s1/flash.json" {
		t.Fatalf("url = %q", got)
	}
}

func TestFSStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFSStore(t.TempDir(), "/assets")
	for _, key := range []string{"", "/etc/passwd", "../secret", "a/../../b", "..", `..\win`} {
		if _, err := s.Put(ctx, key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Put(%q) err = %v", key, err)
		}
		if _, err := s.Get(ctx, key); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Get(%q) err = %v", key, err)
		}
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	s, _ := NewFSStore(t.TempDir(), "/assets")
	if _, err := s.Get(context.Background(), "nope.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
