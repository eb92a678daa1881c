package matcher

// StateCap bounds the size of a breadth set.
const StateCap = 128

// State identifies an automaton state.
type State int32

// States is a breadth set: a fixed capacity ring of active automaton states.
// Pushing past capacity drops the state and marks the set overflowed, so that
// callers may retire it rather than proceed with a partial set.
type States struct {
	ring     [StateCap]State
	first    int
	n        int
	overflow bool
}

// Len returns the number of active states.
func (ss *States) Len() int { return ss.n }

// Empty returns true if no states are active.
func (ss *States) Empty() bool { return ss.n == 0 }

// Overflowed returns true if any state was dropped for lack of capacity.
func (ss *States) Overflowed() bool { return ss.overflow }

// Reset empties the set, clearing any overflow.
func (ss *States) Reset() { *ss = States{} }

// At returns the i-th active state, oldest first.
func (ss *States) At(i int) State { return ss.ring[(ss.first+i)%StateCap] }

// Slice returns the active states, oldest first.
func (ss *States) Slice() []State {
	out := make([]State, ss.n)
	for i := range out {
		out[i] = ss.At(i)
	}
	return out
}

// Push adds a state to the back of the ring.
func (ss *States) Push(st State) {
	if ss.n >= StateCap {
		ss.overflow = true
		return
	}
	ss.ring[(ss.first+ss.n)%StateCap] = st
	ss.n++
}

func (ss *States) pop() State {
	st := ss.ring[ss.first]
	ss.first = (ss.first + 1) % StateCap
	ss.n--
	return st
}

// pushNew pushes st unless it is among the newest since states were pushed
// during the current step.
func (ss *States) pushNew(st State, since int) {
	for i := since; i < ss.n; i++ {
		if ss.At(i) == st {
			return
		}
	}
	ss.Push(st)
}
