package history

import (
	"encoding/json"
	"errors"
	"testing"
)

func openTestStore(t *testing.T, kv KV) *Store {
	t.Helper()
	s, err := Open(Options{KV: kv, UserID: "user_1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStore_CreateThread(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())

	id, err := s.CreateThread("quiz")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if id == "" {
		t.Fatalf("empty thread id")
	}

	cur := s.GetCurrentThread()
	if cur == nil {
		t.Fatalf("no current thread after create")
	}
	if cur.ID != id {
		t.Fatalf("current id=%q, want %q", cur.ID, id)
	}
	if cur.Feature != "quiz" {
		t.Fatalf("Feature=%q, want quiz", cur.Feature)
	}
	if cur.Title != "New quiz Chat" {
		t.Fatalf("Title=%q, want %q", cur.Title, "New quiz Chat")
	}
	if len(cur.Messages) != 0 {
		t.Fatalf("Messages len=%d, want 0", len(cur.Messages))
	}
	if cur.CreatedAt <= 0 || cur.UpdatedAt != cur.CreatedAt {
		t.Fatalf("timestamps: created=%d updated=%d", cur.CreatedAt, cur.UpdatedAt)
	}
}

func TestStore_CreateThread_IDsDistinct(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := s.CreateThread("chat")
		if err != nil {
			t.Fatalf("CreateThread #%d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("duplicate thread id %q", id)
		}
		seen[id] = true
	}
}

func TestStore_CreateThread_NewestFirst(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())

	id1, err := s.CreateThread("quiz")
	if err != nil {
		t.Fatalf("CreateThread quiz: %v", err)
	}
	id2, err := s.CreateThread("essay")
	if err != nil {
		t.Fatalf("CreateThread essay: %v", err)
	}

	threads := s.Threads()
	if len(threads) != 2 {
		t.Fatalf("threads len=%d, want 2", len(threads))
	}
	if threads[0].ID != id2 || threads[1].ID != id1 {
		t.Fatalf("order=[%q %q], want [%q %q]", threads[0].ID, threads[1].ID, id2, id1)
	}
	if s.CurrentThreadID() != id2 {
		t.Fatalf("current=%q, want %q", s.CurrentThreadID(), id2)
	}
}

func TestStore_CreateThread_InvalidFeature(t *testing.T) {
	t.Parallel()

	resolver := func(id string) bool { return id == "chat" }
	s, err := Open(Options{KV: NewMemoryKV(), UserID: "user_1", ResolveFeature: resolver})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := s.CreateThread("nope"); !errors.Is(err, ErrInvalidFeature) {
		t.Fatalf("err=%v, want ErrInvalidFeature", err)
	}
	if _, err := s.CreateThread("chat"); err != nil {
		t.Fatalf("CreateThread chat: %v", err)
	}
}

func TestStore_DeleteThread(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())

	id1, _ := s.CreateThread("quiz")
	id2, _ := s.CreateThread("essay")

	// Deleting a non-current thread never changes the current pointer.
	if err := s.DeleteThread(id1); err != nil {
		t.Fatalf("DeleteThread non-current: %v", err)
	}
	if s.CurrentThreadID() != id2 {
		t.Fatalf("current=%q, want %q", s.CurrentThreadID(), id2)
	}

	// Deleting the current (and only) thread empties everything.
	if err := s.DeleteThread(id2); err != nil {
		t.Fatalf("DeleteThread current: %v", err)
	}
	if got := s.GetCurrentThread(); got != nil {
		t.Fatalf("current thread=%+v, want nil", got)
	}
	if n := len(s.Threads()); n != 0 {
		t.Fatalf("threads len=%d, want 0", n)
	}
}

func TestStore_DeleteThread_CurrentFallsBack(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())

	id1, _ := s.CreateThread("quiz")
	id2, _ := s.CreateThread("essay")

	if err := s.DeleteThread(id2); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	threads := s.Threads()
	if len(threads) != 1 || threads[0].ID != id1 {
		t.Fatalf("threads=%v, want only %q", threads, id1)
	}
	if s.CurrentThreadID() != id1 {
		t.Fatalf("current=%q, want %q", s.CurrentThreadID(), id1)
	}
}

func TestStore_DeleteThread_UnknownIsNoop(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())
	id1, _ := s.CreateThread("quiz")

	if err := s.DeleteThread("th_missing"); err != nil {
		t.Fatalf("DeleteThread unknown: %v", err)
	}
	if n := len(s.Threads()); n != 1 {
		t.Fatalf("threads len=%d, want 1", n)
	}
	if s.CurrentThreadID() != id1 {
		t.Fatalf("current=%q, want %q", s.CurrentThreadID(), id1)
	}
}

func TestStore_RenameThread(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())
	id, _ := s.CreateThread("quiz")
	before := s.GetThread(id).UpdatedAt

	// Empty and whitespace-only titles are no-ops.
	if err := s.RenameThread(id, "   "); err != nil {
		t.Fatalf("RenameThread whitespace: %v", err)
	}
	if got := s.GetThread(id).Title; got != "New quiz Chat" {
		t.Fatalf("Title=%q, want unchanged", got)
	}

	if err := s.RenameThread(id, "Algebra revision"); err != nil {
		t.Fatalf("RenameThread: %v", err)
	}
	got := s.GetThread(id)
	if got.Title != "Algebra revision" {
		t.Fatalf("Title=%q, want %q", got.Title, "Algebra revision")
	}
	if got.UpdatedAt < before {
		t.Fatalf("UpdatedAt went backwards: %d < %d", got.UpdatedAt, before)
	}

	// Unknown id is a no-op, not an error.
	if err := s.RenameThread("th_missing", "X"); err != nil {
		t.Fatalf("RenameThread unknown: %v", err)
	}
}

func TestStore_RenameThread_DoesNotReorder(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())
	id1, _ := s.CreateThread("quiz")
	id2, _ := s.CreateThread("essay")

	if err := s.RenameThread(id1, "renamed"); err != nil {
		t.Fatalf("RenameThread: %v", err)
	}
	threads := s.Threads()
	if threads[0].ID != id2 || threads[1].ID != id1 {
		t.Fatalf("order changed after rename: [%q %q]", threads[0].ID, threads[1].ID)
	}
}

func TestStore_ReplaceMessages(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())
	id1, _ := s.CreateThread("quiz")
	id2, _ := s.CreateThread("essay")

	msgs := []Message{
		{ID: "m1", Role: RoleUser, Content: "What is 2+2?", Timestamp: 1},
		{ID: "m2", Role: RoleAssistant, Content: "4", Timestamp: 2},
	}
	if err := s.ReplaceMessages(id1, msgs); err != nil {
		t.Fatalf("ReplaceMessages: %v", err)
	}

	got := s.GetThread(id1)
	if len(got.Messages) != 2 {
		t.Fatalf("messages len=%d, want 2", len(got.Messages))
	}
	for i, m := range got.Messages {
		if m.Content != msgs[i].Content || m.Role != msgs[i].Role {
			t.Fatalf("message %d = %+v, want content/role preserved", i, m)
		}
		// Timestamps are rewritten to the store's write time.
		if m.Timestamp <= 2 {
			t.Fatalf("message %d timestamp=%d, want rewritten", i, m.Timestamp)
		}
	}
	if got.UpdatedAt < got.CreatedAt {
		t.Fatalf("UpdatedAt=%d < CreatedAt=%d", got.UpdatedAt, got.CreatedAt)
	}

	// Other threads are untouched.
	if n := len(s.GetThread(id2).Messages); n != 0 {
		t.Fatalf("other thread messages len=%d, want 0", n)
	}

	// Unknown id is a no-op.
	if err := s.ReplaceMessages("th_missing", msgs); err != nil {
		t.Fatalf("ReplaceMessages unknown: %v", err)
	}
}

func TestStore_SetCurrentThreadID_AllowsDangling(t *testing.T) {
	t.Parallel()

	s := openTestStore(t, NewMemoryKV())
	s.SetCurrentThreadID("th_forthcoming")

	if got := s.CurrentThreadID(); got != "th_forthcoming" {
		t.Fatalf("current=%q, want th_forthcoming", got)
	}
	if got := s.GetCurrentThread(); got != nil {
		t.Fatalf("dangling current resolved to %+v, want nil", got)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	s := openTestStore(t, kv)

	id, _ := s.CreateThread("flashcards")
	if err := s.RenameThread(id, "Biology"); err != nil {
		t.Fatalf("RenameThread: %v", err)
	}
	if err := s.ReplaceMessages(id, []Message{{Role: RoleUser, Content: "hi"}}); err != nil {
		t.Fatalf("ReplaceMessages: %v", err)
	}
	want := s.GetThread(id)

	reloaded, err := Open(Options{KV: kv, UserID: "user_1"})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reloaded.GetThread(id)
	if got == nil {
		t.Fatalf("thread missing after reload")
	}
	if got.Title != want.Title || got.Feature != want.Feature {
		t.Fatalf("reloaded=%+v, want %+v", got, want)
	}
	if got.CreatedAt != want.CreatedAt || got.UpdatedAt != want.UpdatedAt {
		t.Fatalf("timestamps not preserved: got=%d/%d want=%d/%d", got.CreatedAt, got.UpdatedAt, want.CreatedAt, want.UpdatedAt)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hi" || got.Messages[0].Timestamp != want.Messages[0].Timestamp {
		t.Fatalf("messages not preserved: %+v", got.Messages)
	}
	// A non-empty reload selects the first thread as current.
	if reloaded.CurrentThreadID() != id {
		t.Fatalf("current after reload=%q, want %q", reloaded.CurrentThreadID(), id)
	}
}

func TestStore_CorruptSnapshotStartsEmpty(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	if err := kv.Set(PartitionKey("user_1"), "{not json"); err != nil {
		t.Fatalf("seed kv: %v", err)
	}

	s, err := Open(Options{KV: kv, UserID: "user_1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !s.RecoveredFromCorrupt() {
		t.Fatalf("RecoveredFromCorrupt=false, want true")
	}
	if n := len(s.Threads()); n != 0 {
		t.Fatalf("threads len=%d, want 0", n)
	}
	if s.CurrentThreadID() != "" {
		t.Fatalf("current=%q, want none", s.CurrentThreadID())
	}
}

func TestStore_NullSnapshotEntriesStartEmpty(t *testing.T) {
	t.Parallel()

	// A null entry unmarshals without error; the store must still treat the
	// snapshot as corrupt instead of panicking on the nil thread.
	cases := []string{
		`[null]`,
		`[null, null]`,
		`[{"id":"th_1","title":"T","feature":"chat","messages":[],"createdAt":1,"updatedAt":1}, null]`,
	}
	for _, raw := range cases {
		kv := NewMemoryKV()
		if err := kv.Set(PartitionKey("user_1"), raw); err != nil {
			t.Fatalf("seed kv: %v", err)
		}

		s, err := Open(Options{KV: kv, UserID: "user_1"})
		if err != nil {
			t.Fatalf("Open(%s): %v", raw, err)
		}
		if !s.RecoveredFromCorrupt() {
			t.Fatalf("Open(%s): RecoveredFromCorrupt=false, want true", raw)
		}
		if n := len(s.Threads()); n != 0 {
			t.Fatalf("Open(%s): threads len=%d, want 0", raw, n)
		}
		if s.CurrentThreadID() != "" {
			t.Fatalf("Open(%s): current=%q, want none", raw, s.CurrentThreadID())
		}

		// The partition must be usable again after recovery.
		id, err := s.CreateThread("chat")
		if err != nil {
			t.Fatalf("CreateThread after recovery: %v", err)
		}
		if s.GetThread(id) == nil {
			t.Fatalf("GetThread(%q) = nil after recovery", id)
		}
	}
}

func TestStore_ClearAll(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	s := openTestStore(t, kv)
	_, _ = s.CreateThread("quiz")
	_, _ = s.CreateThread("essay")

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	if n := len(s.Threads()); n != 0 {
		t.Fatalf("threads len=%d, want 0", n)
	}
	if s.CurrentThreadID() != "" {
		t.Fatalf("current=%q, want none", s.CurrentThreadID())
	}
	if _, ok, _ := kv.Get(PartitionKey("user_1")); ok {
		t.Fatalf("partition still present after ClearAll")
	}
}

type failingKV struct {
	*MemoryKV
	failSet bool
}

func (f *failingKV) Set(key string, value string) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.MemoryKV.Set(key, value)
}

func TestStore_PersistFailureSurfacesButKeepsMemory(t *testing.T) {
	t.Parallel()

	kv := &failingKV{MemoryKV: NewMemoryKV()}
	s, err := Open(Options{KV: kv, UserID: "user_1"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	kv.failSet = true
	id, err := s.CreateThread("quiz")
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err=%v, want ErrPersistence", err)
	}
	// The optimistic in-memory update already happened.
	if got := s.GetThread(id); got == nil {
		t.Fatalf("thread missing from memory after failed persist")
	}
}

func TestStore_ExportMatchesPersistedStructure(t *testing.T) {
	t.Parallel()

	kv := NewMemoryKV()
	s := openTestStore(t, kv)
	id, _ := s.CreateThread("quiz")
	_ = s.ReplaceMessages(id, []Message{{Role: RoleUser, Content: "hello"}})

	exported, err := s.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	persisted, ok, err := kv.Get(PartitionKey("user_1"))
	if err != nil || !ok {
		t.Fatalf("persisted snapshot missing: ok=%v err=%v", ok, err)
	}

	var a, b []map[string]any
	if err := json.Unmarshal(exported, &a); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if err := json.Unmarshal([]byte(persisted), &b); err != nil {
		t.Fatalf("unmarshal persisted: %v", err)
	}
	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	if string(ab) != string(bb) {
		t.Fatalf("export structure differs from persisted:\n%s\n%s", ab, bb)
	}
}
