package phase

// Machine maps the current driving angles to a phase. With several signals
// the phase is only reported when they all agree; otherwise it is Transition.
type Machine struct {
	signals []Signal
	current Phase
	set     bool
}

// NewMachine creates a machine over the given driving signals.
func NewMachine(signals ...Signal) *Machine {
	return &Machine{signals: signals}
}

// Signals returns the driving signals in order.
func (m *Machine) Signals() []Signal {
	return m.signals
}

// Update classifies one frame. angles must be ordered like the machine's
// signals; a frame with the wrong number of angles is ignored and Current
// is returned unchanged.
func (m *Machine) Update(angles ...float64) Phase {
	if len(angles) != len(m.signals) || len(angles) == 0 {
		p, _ := m.Current()
		return p
	}

	p := m.signals[0].Table.Classify(angles[0])
	for i := 1; i < len(angles); i++ {
		if m.signals[i].Table.Classify(angles[i]) != p {
			p = Transition
			break
		}
	}

	m.current = p
	m.set = true
	return p
}

// Current returns the last classified phase. The second value is false until
// the first frame has been classified.
func (m *Machine) Current() (Phase, bool) {
	if !m.set {
		return Unknown, false
	}
	return m.current, true
}

// Reset returns the machine to its initial unclassified state.
func (m *Machine) Reset() {
	m.current = ""
	m.set = false
}
