package phase

// RepCounter counts rest -> bottom -> rest cycles.
//
// Only the two milestone phases are tracked; intermediate phases and
// repeats of the latest milestone are ignored. A rep closes when the
// history reads rest, bottom, rest.
type RepCounter struct {
	rest    Phase
	bottom  Phase
	history []Phase
	count   int
}

// NewRepCounter creates a counter for the given milestone phases.
func NewRepCounter(rest, bottom Phase) *RepCounter {
	return &RepCounter{
		rest:    rest,
		bottom:  bottom,
		history: make([]Phase, 0, 3),
	}
}

// Observe feeds the current phase and reports whether it completed a rep.
func (c *RepCounter) Observe(p Phase) bool {
	if p != c.rest && p != c.bottom {
		return false
	}
	if n := len(c.history); n > 0 && c.history[n-1] == p {
		return false
	}

	c.history = append(c.history, p)
	if len(c.history) > 3 {
		c.history = c.history[1:]
	}

	if len(c.history) == 3 &&
		c.history[0] == c.rest &&
		c.history[1] == c.bottom &&
		c.history[2] == c.rest {
		c.count++
		return true
	}
	return false
}

// Count returns the number of completed reps.
func (c *RepCounter) Count() int {
	return c.count
}

// Reset clears the history and the count.
func (c *RepCounter) Reset() {
	c.history = c.history[:0]
	c.count = 0
}
