package tasks

import (
	"container/heap"
	"time"
)

// schedEvent is the next due run of one repeating task.
// index is required for heap.Fix + O(log n) removals.
type schedEvent struct {
	id    int64
	when  time.Time
	index int
}

type schedule struct {
	h eventHeap
	// id → pending event; at most one per task.
	entries map[int64]*schedEvent
}

func newSchedule() *schedule {
	h := eventHeap{}
	heap.Init(&h)
	return &schedule{
		h:       h,
		entries: make(map[int64]*schedEvent),
	}
}

// push schedules id at when, replacing any pending run of the same task.
func (s *schedule) push(id int64, when time.Time) {
	if old, ok := s.entries[id]; ok {
		old.when = when
		heap.Fix(&s.h, old.index)
		return
	}

	ev := &schedEvent{id: id, when: when}
	s.entries[id] = ev
	heap.Push(&s.h, ev)
}

// next returns the soonest event but does not remove it.
func (s *schedule) next() (id int64, when time.Time, ok bool) {
	if len(s.h) == 0 {
		return 0, time.Time{}, false
	}
	ev := s.h[0]
	return ev.id, ev.when, true
}

// pop removes the head event unconditionally.
func (s *schedule) pop() {
	if len(s.h) == 0 {
		return
	}
	ev := heap.Pop(&s.h).(*schedEvent)
	delete(s.entries, ev.id)
}

func (s *schedule) len() int { return len(s.h) }

// --- heap internals ----------------------------------------------------------

// eventHeap is a min-heap ordered by event.when.
type eventHeap []*schedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	return h[i].when.Before(h[j].when)
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *eventHeap) Push(x any) {
	ev := x.(*schedEvent)
	ev.index = len(*h)
	*h = append(*h, ev)
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	ev.index = -1 // mark as removed
	*h = old[:n-1]
	return ev
}
