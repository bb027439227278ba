package history

import "time"

// Group labels, in fixed display order.
const (
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
	GroupLast7Days = "Last 7 days"
	GroupOlder     = "Older"
)

// Group is one recency bucket. Threads keep the order they had in the input.
type Group struct {
	Label   string    `json:"label"`
	Threads []*Thread `json:"threads"`
}

// GroupByRecency buckets threads by UpdatedAt relative to now.
//
// Today and Yesterday use local calendar days; Last 7 days is a rolling
// 7-day window; everything else is Older. Every thread lands in exactly one
// bucket. Empty buckets are omitted; bucket order is fixed.
func GroupByRecency(threads []*Thread, now time.Time) []Group {
	buckets := map[string][]*Thread{}
	for _, t := range threads {
		if t == nil {
			continue
		}
		label := bucketFor(time.UnixMilli(t.UpdatedAt), now)
		buckets[label] = append(buckets[label], t)
	}

	out := make([]Group, 0, 4)
	for _, label := range []string{GroupToday, GroupYesterday, GroupLast7Days, GroupOlder} {
		if ts := buckets[label]; len(ts) > 0 {
			out = append(out, Group{Label: label, Threads: ts})
		}
	}
	return out
}

func bucketFor(updated time.Time, now time.Time) string {
	updated = updated.In(now.Location())
	if sameDay(updated, now) {
		return GroupToday
	}
	if sameDay(updated, now.AddDate(0, 0, -1)) {
		return GroupYesterday
	}
	if updated.After(now.AddDate(0, 0, -7)) {
		return GroupLast7Days
	}
	return GroupOlder
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
