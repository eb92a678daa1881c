package arena

// PoolDump provides data for testing.
type PoolDump struct {
	Size    int
	Cur     int
	InUse   []int
	WasUsed []int
}

// Dump pool bucket bookkeeping for testing.
func (p *Pool[T]) Dump() (d PoolDump) {
	d.Size = p.size
	d.Cur = p.cur
	for _, b := range p.buckets {
		d.InUse = append(d.InUse, b.inUse)
		d.WasUsed = append(d.WasUsed, b.wasUsed)
	}
	return d
}
