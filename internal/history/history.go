// Package history owns per-user chat threads: a durable CRUD index with a
// notion of "current" thread and recency-based grouping for display.
//
// Persistence goes through the KV capability. One partition per user, key
// "chats_<userID>", value = JSON array of threads (newest first). Writes are
// whole-list and synchronous; there is no merge across two stores opened on
// the same partition (last writer wins).
package history

// Role values for Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn recorded into a thread.
//
// Timestamp is the store's write time (unix ms), not the time the text was
// generated upstream.
type Message struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Thread is one persisted conversation.
//
// Feature is immutable after creation; Messages keep insertion order and are
// never reordered. Times are unix milliseconds.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Feature   string    `json:"feature"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
}

// KV is the injected persistence capability.
//
// Get reports (value, found, error). Set and Delete are synchronous and
// best-effort durable; a failed Set surfaces to the store caller as an
// ErrPersistence-wrapped error.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
	Delete(key string) error
}

// PartitionKey returns the persistence key for one user's threads.
func PartitionKey(userID string) string {
	return "chats_" + userID
}

func cloneThread(t *Thread) *Thread {
	if t == nil {
		return nil
	}
	out := *t
	out.Messages = make([]Message, len(t.Messages))
	copy(out.Messages, t.Messages)
	return &out
}
