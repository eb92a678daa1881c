package arena

import "fmt"

// DefaultBucketSize provides a default for Pool.BucketSize.
const DefaultBucketSize = 1024

// Pool implements a bucketed object arena.
// Buckets are never resized once allocated, so every pointer handed out stays
// valid until the next Reset; Reset rewinds the cursor, retaining all buckets
// for reuse.
type Pool[T any] struct {
	// BucketSize specifies the length for newly allocated buckets; it must
	// not be changed after the first allocation.
	BucketSize int

	// Limit specifies a limit on live allocations, past which Next panics
	// with a LimitError.
	Limit int

	size    int
	buckets []*bucket[T]
	cur     int
	n       int
	gen     uint32
}

type bucket[T any] struct {
	slots   []T
	inUse   int
	wasUsed int
}

// Resetter may be implemented by pool element types that need to release or
// rewind state when their slot is recycled; Reset must leave the value
// equivalent to its zero value.
type Resetter interface{ Reset() }

// LimitError indicates that an allocation exceeded a Pool's Limit.
type LimitError struct {
	Limit int
	Op    string
}

func (lim LimitError) Error() string {
	return fmt.Sprintf("arena limit %v exceeded by %v", lim.Limit, lim.Op)
}

// Ref is a generation checked handle to a Pool allocation.
type Ref struct {
	gen uint32
	idx uint32
}

// Next returns a fresh zero value from the pool.
func (p *Pool[T]) Next() *T {
	_, v := p.Alloc()
	return v
}

// Alloc returns a fresh zero value from the pool, along with a handle that
// may be resolved by Get until the next Reset.
func (p *Pool[T]) Alloc() (Ref, *T) {
	if p.Limit != 0 && p.n >= p.Limit {
		panic(LimitError{p.Limit, "alloc"})
	}
	b := p.bucket()
	i := b.inUse
	b.inUse++
	slot := &b.slots[i]
	if i < b.wasUsed {
		recycle(slot)
	} else {
		b.wasUsed++
	}
	ref := Ref{p.gen, uint32(p.n)}
	p.n++
	return ref, slot
}

// Get resolves a handle, returning nil and false if it was issued before the
// latest Reset.
func (p *Pool[T]) Get(ref Ref) (*T, bool) {
	if ref.gen != p.gen || int(ref.idx) >= p.n {
		return nil, false
	}
	b := p.buckets[int(ref.idx)/p.size]
	return &b.slots[int(ref.idx)%p.size], true
}

// Reset rewinds the pool, invalidating all prior pointers and handles.
// Bucket capacity is retained; recycled slots are reset when next handed out.
func (p *Pool[T]) Reset() {
	p.cur = 0
	p.n = 0
	p.gen++
	if len(p.buckets) > 0 {
		p.buckets[0].inUse = 0
	}
}

// Len returns the number of live allocations.
func (p *Pool[T]) Len() int { return p.n }

// Cap returns the number of slots allocated across all buckets.
func (p *Pool[T]) Cap() int { return len(p.buckets) * p.size }

// Gen returns the current reset generation.
func (p *Pool[T]) Gen() uint32 { return p.gen }

func (p *Pool[T]) bucket() *bucket[T] {
	if len(p.buckets) == 0 {
		p.buckets = append(p.buckets, p.newBucket())
		p.cur = 0
	}
	b := p.buckets[p.cur]
	if b.inUse < len(b.slots) {
		return b
	}
	p.cur++
	if p.cur == len(p.buckets) {
		b = p.newBucket()
		p.buckets = append(p.buckets, b)
	} else {
		b = p.buckets[p.cur]
		b.inUse = 0
	}
	return b
}

func (p *Pool[T]) newBucket() *bucket[T] {
	if p.size == 0 {
		p.size = p.BucketSize
		if p.size <= 0 {
			p.size = DefaultBucketSize
		}
	}
	return &bucket[T]{slots: make([]T, p.size)}
}

func recycle[T any](slot *T) {
	if r, ok := any(slot).(Resetter); ok {
		r.Reset()
		return
	}
	var zero T
	*slot = zero
}
