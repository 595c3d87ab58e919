package core

// Latch is a one-shot flag: Fire succeeds at most once until Reset.
type Latch struct {
	fired bool
}

// Fire reports whether this call tripped the latch.
func (l *Latch) Fire() bool {
	if l.fired {
		return false
	}
	l.fired = true
	return true
}

// Reset re-arms the latch.
func (l *Latch) Reset() { l.fired = false }
