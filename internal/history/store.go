package history

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrInvalidFeature is returned by CreateThread when the feature id does not
// resolve in the feature catalog. It is never silently substituted with a
// default feature.
var ErrInvalidFeature = errors.New("invalid feature")

// ErrPersistence wraps failed KV writes. By the time it surfaces the
// in-memory state already reflects the attempted change, so callers should
// read it as "change may not survive a reload", not "change was rejected".
var ErrPersistence = errors.New("persistence failure")

// FeatureResolver reports whether a feature id exists in the catalog.
type FeatureResolver func(id string) bool

// Store is the chat history index for one user partition.
//
// All operations run under one mutex, so a single Store is safe for
// concurrent handlers. Two Stores opened over the same partition (for
// example two processes) coordinate nothing: last full-list write wins.
type Store struct {
	mu sync.Mutex

	kv        KV
	userID    string
	resolve   FeatureResolver
	now       func() int64
	newID     func() string
	newMsgID  func() string
	threads   []*Thread
	currentID string
	recovered bool
}

// Options configures Open. Only KV and UserID are required.
type Options struct {
	KV     KV
	UserID string

	// ResolveFeature guards CreateThread. When nil, every feature id is
	// accepted (the caller owns validation).
	ResolveFeature FeatureResolver

	// Now overrides the clock (unix ms). Tests only.
	Now func() int64
}

// Open loads the user's partition and returns a ready store.
//
// A missing snapshot starts empty. A corrupt snapshot is discarded and the
// store starts empty; RecoveredFromCorrupt reports it so the caller can log.
// A non-empty snapshot selects its first thread as current.
func Open(opts Options) (*Store, error) {
	if opts.KV == nil {
		return nil, errors.New("missing kv")
	}
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return nil, errors.New("missing user id")
	}

	s := &Store{
		kv:       opts.KV,
		userID:   userID,
		resolve:  opts.ResolveFeature,
		now:      opts.Now,
		newID:    newThreadID,
		newMsgID: newMessageID,
	}
	if s.now == nil {
		s.now = func() int64 { return time.Now().UnixMilli() }
	}

	raw, ok, err := s.kv.Get(PartitionKey(userID))
	if err != nil {
		return nil, fmt.Errorf("loading partition: %w", err)
	}
	if ok && strings.TrimSpace(raw) != "" {
		var threads []*Thread
		if err := json.Unmarshal([]byte(raw), &threads); err != nil || hasNilThread(threads) {
			// Corrupt snapshot: start empty rather than fail the session.
			// A JSON null entry unmarshals without error but is just as
			// unusable as a parse failure.
			s.recovered = true
		} else {
			s.threads = threads
			if len(threads) > 0 {
				s.currentID = threads[0].ID
			}
		}
	}
	return s, nil
}

func hasNilThread(threads []*Thread) bool {
	for _, t := range threads {
		if t == nil {
			return true
		}
	}
	return false
}

// UserID returns the partition owner.
func (s *Store) UserID() string {
	if s == nil {
		return ""
	}
	return s.userID
}

// RecoveredFromCorrupt reports whether Open discarded an unparseable snapshot.
func (s *Store) RecoveredFromCorrupt() bool {
	if s == nil {
		return false
	}
	return s.recovered
}

// CreateThread makes an empty thread for the feature, prepends it (newest
// first), persists, and selects it as current. Returns the new thread id.
func (s *Store) CreateThread(feature string) (string, error) {
	if s == nil {
		return "", errors.New("nil store")
	}
	feature = strings.TrimSpace(feature)
	if feature == "" {
		return "", ErrInvalidFeature
	}
	if s.resolve != nil && !s.resolve(feature) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFeature, feature)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := &Thread{
		ID:        s.newID(),
		Title:     fmt.Sprintf("New %s Chat", feature),
		Feature:   feature,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.threads = append([]*Thread{t}, s.threads...)
	s.currentID = t.ID

	if err := s.persistLocked(); err != nil {
		return t.ID, err
	}
	return t.ID, nil
}

// RenameThread replaces the title and bumps UpdatedAt. Empty-after-trim
// titles and unknown ids are no-ops. Thread order is unchanged.
func (s *Store) RenameThread(id string, title string) error {
	if s == nil {
		return errors.New("nil store")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findLocked(id)
	if t == nil {
		return nil
	}
	t.Title = title
	t.UpdatedAt = s.now()
	return s.persistLocked()
}

// DeleteThread removes the thread if present. Deleting the current thread
// moves current to the first remaining thread, or none.
func (s *Store) DeleteThread(id string) error {
	if s == nil {
		return errors.New("nil store")
	}
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.threads {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	s.threads = append(s.threads[:idx], s.threads[idx+1:]...)
	if s.currentID == id {
		if len(s.threads) > 0 {
			s.currentID = s.threads[0].ID
		} else {
			s.currentID = ""
		}
	}
	return s.persistLocked()
}

// ReplaceMessages swaps the thread's message list wholesale. Each message is
// normalized: missing ids are assigned, and every timestamp is rewritten to
// the store's write time. Unknown ids are no-ops.
func (s *Store) ReplaceMessages(id string, messages []Message) error {
	if s == nil {
		return errors.New("nil store")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.findLocked(id)
	if t == nil {
		return nil
	}

	now := s.now()
	normalized := make([]Message, 0, len(messages))
	for _, m := range messages {
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			m.ID = s.newMsgID()
		}
		m.Timestamp = now
		normalized = append(normalized, m)
	}
	t.Messages = normalized
	t.UpdatedAt = now
	return s.persistLocked()
}

// GetThread returns a copy of the thread, or nil when absent.
func (s *Store) GetThread(id string) *Thread {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneThread(s.findLocked(id))
}

// GetCurrentThread returns a copy of the current thread, or nil when the
// pointer is unset or dangling.
func (s *Store) GetCurrentThread() *Thread {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentID == "" {
		return nil
	}
	return cloneThread(s.findLocked(s.currentID))
}

// CurrentThreadID returns the raw current pointer ("" means none).
func (s *Store) CurrentThreadID() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentID
}

// SetCurrentThreadID updates the current pointer without validating that the
// id exists. Readers treat a dangling pointer as "no current thread".
func (s *Store) SetCurrentThreadID(id string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentID = strings.TrimSpace(id)
}

// Threads returns a copy of the thread list in display order (newest
// created first; rename/replace do not reorder).
func (s *Store) Threads() []*Thread {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		out = append(out, cloneThread(t))
	}
	return out
}

// ClearAll deletes the persisted partition and resets in-memory state.
// Irreversible.
func (s *Store) ClearAll() error {
	if s == nil {
		return errors.New("nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads = nil
	s.currentID = ""
	if err := s.kv.Delete(PartitionKey(s.userID)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// Export renders the thread list as pretty-printed JSON, structurally
// identical to the persisted format.
func (s *Store) Export() ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	threads := s.threads
	if threads == nil {
		threads = []*Thread{}
	}
	return json.MarshalIndent(threads, "", "  ")
}

// persistLocked writes the full list. The in-memory mutation has already
// happened; a failed write means "may not survive a reload".
func (s *Store) persistLocked() error {
	threads := s.threads
	if threads == nil {
		threads = []*Thread{}
	}
	b, err := json.Marshal(threads)
	if err != nil {
		return fmt.Errorf("%w: marshaling threads: %v", ErrPersistence, err)
	}
	if err := s.kv.Set(PartitionKey(s.userID), string(b)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *Store) findLocked(id string) *Thread {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	for _, t := range s.threads {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// newThreadID generates a cryptographically random thread id.
func newThreadID() string {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms; fall back to time.
		return fmt.Sprintf("th_%d", time.Now().UnixNano())
	}
	return "th_" + base64.RawURLEncoding.EncodeToString(b)
}

func newMessageID() string {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("msg_%d", time.Now().UnixNano())
	}
	return "msg_" + base64.RawURLEncoding.EncodeToString(b)
}
