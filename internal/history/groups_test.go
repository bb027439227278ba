package history

import (
	"testing"
	"time"
)

func TestGroupByRecency_Buckets(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	ms := func(t time.Time) int64 { return t.UnixMilli() }

	threads := []*Thread{
		{ID: "t_now", UpdatedAt: ms(now)},
		{ID: "t_today_early", UpdatedAt: ms(now.Add(-13 * time.Hour))}, // 01:00 same day
		{ID: "t_yesterday", UpdatedAt: ms(now.Add(-24 * time.Hour))},
		{ID: "t_week", UpdatedAt: ms(now.AddDate(0, 0, -5))},
		{ID: "t_older", UpdatedAt: ms(now.AddDate(0, 0, -8))},
	}

	groups := GroupByRecency(threads, now)
	if len(groups) != 4 {
		t.Fatalf("groups len=%d, want 4", len(groups))
	}

	wantLabels := []string{GroupToday, GroupYesterday, GroupLast7Days, GroupOlder}
	for i, g := range groups {
		if g.Label != wantLabels[i] {
			t.Fatalf("group %d label=%q, want %q", i, g.Label, wantLabels[i])
		}
	}
	if len(groups[0].Threads) != 2 || groups[0].Threads[0].ID != "t_now" || groups[0].Threads[1].ID != "t_today_early" {
		t.Fatalf("Today bucket wrong: %+v", groups[0].Threads)
	}
	if len(groups[1].Threads) != 1 || groups[1].Threads[0].ID != "t_yesterday" {
		t.Fatalf("Yesterday bucket wrong: %+v", groups[1].Threads)
	}
	if len(groups[2].Threads) != 1 || groups[2].Threads[0].ID != "t_week" {
		t.Fatalf("Last 7 days bucket wrong: %+v", groups[2].Threads)
	}
	if len(groups[3].Threads) != 1 || groups[3].Threads[0].ID != "t_older" {
		t.Fatalf("Older bucket wrong: %+v", groups[3].Threads)
	}
}

func TestGroupByRecency_Partition(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 23, 30, 0, 0, time.UTC)
	threads := make([]*Thread, 0, 30)
	for i := 0; i < 30; i++ {
		threads = append(threads, &Thread{
			ID:        string(rune('a' + i)),
			UpdatedAt: now.Add(-time.Duration(i*11) * time.Hour).UnixMilli(),
		})
	}

	groups := GroupByRecency(threads, now)
	total := 0
	seen := map[string]bool{}
	for _, g := range groups {
		for _, th := range g.Threads {
			if seen[th.ID] {
				t.Fatalf("thread %q in more than one bucket", th.ID)
			}
			seen[th.ID] = true
			total++
		}
	}
	if total != len(threads) {
		t.Fatalf("bucketed %d threads, want %d", total, len(threads))
	}
}

func TestGroupByRecency_EmptyBucketsOmitted(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	threads := []*Thread{
		{ID: "t1", UpdatedAt: now.UnixMilli()},
		{ID: "t2", UpdatedAt: now.AddDate(0, 0, -30).UnixMilli()},
	}

	groups := GroupByRecency(threads, now)
	if len(groups) != 2 {
		t.Fatalf("groups len=%d, want 2", len(groups))
	}
	if groups[0].Label != GroupToday || groups[1].Label != GroupOlder {
		t.Fatalf("labels=[%q %q], want [Today Older]", groups[0].Label, groups[1].Label)
	}
}

func TestGroupByRecency_CalendarDayNotRollingWindow(t *testing.T) {
	t.Parallel()

	// 00:30 local: something from 2 hours ago is "Yesterday" by calendar day
	// even though it is well within a rolling 24h window.
	now := time.Date(2026, 3, 15, 0, 30, 0, 0, time.UTC)
	threads := []*Thread{
		{ID: "t1", UpdatedAt: now.Add(-2 * time.Hour).UnixMilli()},
	}

	groups := GroupByRecency(threads, now)
	if len(groups) != 1 || groups[0].Label != GroupYesterday {
		t.Fatalf("groups=%+v, want single Yesterday bucket", groups)
	}
}
