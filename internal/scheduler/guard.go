package scheduler

// Guard admits at most one instance of an operation at a time. A Guard is
// loop-confined: acquire and release it only from scheduler callbacks.
type Guard struct {
	busy     bool
	rejected uint64
}

// TryAcquire marks the operation as in flight. It returns false, and counts a
// rejection, when one is already running.
func (g *Guard) TryAcquire() bool {
	if g.busy {
		g.rejected++
		return false
	}
	g.busy = true
	return true
}

// Release marks the operation as finished.
func (g *Guard) Release() { g.busy = false }

// Busy reports whether the operation is in flight.
func (g *Guard) Busy() bool { return g.busy }

// Rejected returns how many acquisitions were refused.
func (g *Guard) Rejected() uint64 { return g.rejected }
