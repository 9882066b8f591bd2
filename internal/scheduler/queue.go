package scheduler

import (
	"container/heap"

	"github.com/BTreeMap/FocusGuard/internal/models"
)

// queueItem pairs a pending notification with a monotonic insertion sequence
// number so that equal scheduled times order deterministically.
type queueItem struct {
	notification models.ScheduledNotification
	seq          uint64
}

// notificationQueue is a min-heap ordered by scheduled time, then insertion
// sequence. It implements heap.Interface; callers use container/heap.
type notificationQueue []*queueItem

func (q notificationQueue) Len() int { return len(q) }

func (q notificationQueue) Less(i, j int) bool {
	ti, tj := q[i].notification.ScheduledTime, q[j].notification.ScheduledTime
	if ti.Equal(tj) {
		return q[i].seq < q[j].seq
	}
	return ti.Before(tj)
}

func (q notificationQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *notificationQueue) Push(x any) {
	*q = append(*q, x.(*queueItem))
}

func (q *notificationQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// removeByID removes every queued item with the given notification ID and
// reports whether anything was removed. Caller must hold the scheduler lock.
func (q *notificationQueue) removeByID(id string) bool {
	removed := false
	for i := 0; i < q.Len(); {
		if (*q)[i].notification.ID == id {
			heap.Remove(q, i)
			removed = true
			continue
		}
		i++
	}
	return removed
}
