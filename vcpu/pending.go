package vcpu

import "github.com/govmx/vmxdbg/vmx"

// DefaultPendingCapacity is how many deferred interrupts a core can hold.
const DefaultPendingCapacity = 64

// PendingQueue is a bounded FIFO holding area for deferred interrupt
// descriptors. Entries come back in arrival order, including across
// interleaved Push/Pop sequences that refill drained slots.
//
// Occupancy is tracked by an explicit count, so an all-zero descriptor is
// representable.
type PendingQueue struct {
	slots []uint32
	head  int
	count int
}

func NewPendingQueue(capacity int) *PendingQueue {
	return &PendingQueue{slots: make([]uint32, capacity)}
}

// Push appends raw at the tail. It returns vmx.ErrPendingQueueFull,
// leaving the queued entries untouched, when there is no room.
func (q *PendingQueue) Push(raw uint32) error {
	if q.count == len(q.slots) {
		return vmx.ErrPendingQueueFull
	}

	q.slots[(q.head+q.count)%len(q.slots)] = raw
	q.count++

	return nil
}

// Pop takes the oldest descriptor and frees its slot. The second result is
// false if the queue was empty.
func (q *PendingQueue) Pop() (uint32, bool) {
	if q.count == 0 {
		return 0, false
	}

	raw := q.slots[q.head]
	q.head = (q.head + 1) % len(q.slots)
	q.count--

	return raw, true
}

func (q *PendingQueue) Len() int {
	return q.count
}

func (q *PendingQueue) Empty() bool {
	return q.count == 0
}

func (q *PendingQueue) Cap() int {
	return len(q.slots)
}
