package kvstore

import (
	"path/filepath"
	"testing"
)

func TestOpen_MissingPath(t *testing.T) {
	t.Parallel()

	for _, path := range []string{"", "   "} {
		if _, err := Open(path); err == nil {
			t.Fatalf("Open(%q): expected missing db path error", path)
		}
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	if _, ok, err := s.Get("chats_user_1"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set("chats_user_1", `[{"id":"th_1"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("chats_user_1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || v != `[{"id":"th_1"}]` {
		t.Fatalf("Get=%q ok=%v, want stored value", v, ok)
	}

	// Overwrite.
	if err := s.Set("chats_user_1", `[]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, _ = s.Get("chats_user_1")
	if !ok || v != `[]` {
		t.Fatalf("Get after overwrite=%q ok=%v", v, ok)
	}

	if err := s.Delete("chats_user_1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get("chats_user_1"); ok {
		t.Fatalf("key still present after Delete")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete("chats_user_1"); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}

func TestStore_PartitionsAreIndependent(t *testing.T) {
	t.Parallel()

	s, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = s.Close() }()

	if err := s.Set("chats_user_1", "a"); err != nil {
		t.Fatalf("Set user_1: %v", err)
	}
	if err := s.Set("chats_user_2", "b"); err != nil {
		t.Fatalf("Set user_2: %v", err)
	}
	if err := s.Delete("chats_user_1"); err != nil {
		t.Fatalf("Delete user_1: %v", err)
	}

	v, ok, err := s.Get("chats_user_2")
	if err != nil || !ok || v != "b" {
		t.Fatalf("user_2 partition affected: v=%q ok=%v err=%v", v, ok, err)
	}
}
