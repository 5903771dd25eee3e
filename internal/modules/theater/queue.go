package theater

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mikey-austin/homewatch/internal/modules/library"
)

// Move is the outcome of a queue navigation.
type Move int

const (
	Moved Move = iota
	AtStart
	AtEnd
	Empty
)

func (m Move) String() string {
	switch m {
	case Moved:
		return "moved"
	case AtStart:
		return "at start"
	case AtEnd:
		return "at end"
	default:
		return "empty"
	}
}

// Queue holds the play order over a list of media. ordering is always a
// permutation of the element indices; current indexes ordering, -1 when empty.
type Queue struct {
	mu       sync.Mutex
	elements []*library.Media
	ordering []int
	current  int
	shuffle  bool
	loop     bool
	rng      *rand.Rand
}

// QueueSnapshot is a copy of the queue state.
type QueueSnapshot struct {
	Elements []*library.Media
	Ordering []int
	Current  int
	Shuffle  bool
	Loop     bool
}

// NewQueue creates an empty queue. src may be nil.
func NewQueue(shuffle bool, loop bool, src rand.Source) *Queue {
	if src == nil {
		now := uint64(time.Now().UnixNano())
		src = rand.NewPCG(now, now>>17|1)
	}
	return &Queue{current: -1, shuffle: shuffle, loop: loop, rng: rand.New(src)}
}

// Replace installs items. With shuffle on, the anchor is swapped into the first
// play position of the shuffled order; otherwise current points at the anchor.
// A negative anchor means none.
func (q *Queue) Replace(items []*library.Media, anchor int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.elements = append([]*library.Media{}, items...)
	q.ordering = identity(len(items))
	if len(items) == 0 {
		q.current = -1
		return
	}
	valid := anchor >= 0 && anchor < len(items)
	if q.shuffle {
		q.shuffleLocked()
		if valid {
			pos := indexOf(q.ordering, anchor)
			q.ordering[0], q.ordering[pos] = q.ordering[pos], q.ordering[0]
		}
		q.current = 0
		return
	}
	if valid {
		q.current = anchor
	} else {
		q.current = 0
	}
}

// Append adds items at the end of the play order without reshuffling.
func (q *Queue) Append(items ...*library.Media) {
	q.mu.Lock()
	defer q.mu.Unlock()

	start := len(q.elements)
	q.elements = append(q.elements, items...)
	for i := range items {
		q.ordering = append(q.ordering, start+i)
	}
	if q.current < 0 && len(q.elements) > 0 {
		q.current = 0
	}
}

// SetShuffle rebuilds the play order, keeping the current element current.
func (q *Queue) SetShuffle(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.shuffle = enabled
	if len(q.elements) == 0 {
		return
	}
	element := q.ordering[q.current]
	q.ordering = identity(len(q.elements))
	if enabled {
		q.shuffleLocked()
	}
	q.current = indexOf(q.ordering, element)
}

// SetLoop toggles wrapping at the end.
func (q *Queue) SetLoop(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.loop = enabled
}

// Shuffle reports the shuffle flag.
func (q *Queue) Shuffle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shuffle
}

// Advance moves to the next play position, wrapping (and reshuffling) when looping.
func (q *Queue) Advance() Move {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case len(q.elements) == 0:
		return Empty
	case q.current < len(q.ordering)-1:
		q.current++
		return Moved
	case q.loop:
		q.current = 0
		if q.shuffle {
			q.shuffleLocked()
		} else {
			q.ordering = identity(len(q.elements))
		}
		return Moved
	default:
		return AtEnd
	}
}

// Retreat moves to the previous play position.
func (q *Queue) Retreat() Move {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case len(q.elements) == 0:
		return Empty
	case q.current > 0:
		q.current--
		return Moved
	default:
		return AtStart
	}
}

// Jump sets the current play position; out of range positions are refused.
func (q *Queue) Jump(position int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if position < 0 || position >= len(q.ordering) {
		return false
	}
	q.current = position
	return true
}

// Locate jumps to the play position of m, matched by catalogue path.
func (q *Queue) Locate(m *library.Media) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if m == nil {
		return false
	}
	target := m.Path()
	for i, element := range q.elements {
		if element.Path() == target {
			q.current = indexOf(q.ordering, i)
			return true
		}
	}
	return false
}

// Current returns the media at the current play position.
func (q *Queue) Current() (*library.Media, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.current < 0 || q.current >= len(q.ordering) {
		return nil, false
	}
	return q.elements[q.ordering[q.current]], true
}

// Position returns the current play position, -1 when empty.
func (q *Queue) Position() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Len returns the number of elements.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.elements)
}

// Snapshot returns a copy of the queue state.
func (q *Queue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueSnapshot{
		Elements: append([]*library.Media{}, q.elements...),
		Ordering: append([]int{}, q.ordering...),
		Current:  q.current,
		Shuffle:  q.shuffle,
		Loop:     q.loop,
	}
}

// InOrder returns the elements in play order.
func (s QueueSnapshot) InOrder() []*library.Media {
	out := make([]*library.Media, 0, len(s.Ordering))
	for _, i := range s.Ordering {
		out = append(out, s.Elements[i])
	}
	return out
}

// Restore rebuilds the queue from persisted state. Nil elements could not be
// resolved and are dropped; the ordering is remapped onto the survivors and an
// invalid ordering falls back to insertion order.
func (q *Queue) Restore(elements []*library.Media, ordering []int, current int, shuffle bool, loop bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.shuffle = shuffle
	q.loop = loop
	if !isPermutation(ordering, len(elements)) {
		ordering = identity(len(elements))
	}

	remap := make([]int, len(elements))
	kept := make([]*library.Media, 0, len(elements))
	for i, element := range elements {
		if element == nil {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, element)
	}

	next := make([]int, 0, len(kept))
	position := 0
	for i, element := range ordering {
		if remap[element] < 0 {
			continue
		}
		if i < current {
			position++
		}
		next = append(next, remap[element])
	}

	q.elements = kept
	q.ordering = next
	switch {
	case len(kept) == 0:
		q.current = -1
	case position >= len(next):
		q.current = len(next) - 1
	default:
		q.current = position
	}
}

func (q *Queue) shuffleLocked() {
	q.rng.Shuffle(len(q.ordering), func(i, j int) {
		q.ordering[i], q.ordering[j] = q.ordering[j], q.ordering[i]
	})
}

func identity(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func indexOf(values []int, target int) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

func isPermutation(values []int, n int) bool {
	if len(values) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range values {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}
