package relay

// FakeOutput is a test double that records relay writes.
type FakeOutput struct {
	// Writes contains every value passed to Write, in order.
	Writes []bool

	// State is the last successfully written value.
	State bool

	// WriteError, if set, will be returned by Write and nothing is recorded.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeOutput creates a FakeOutput in the off state.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// Write records the value.
func (f *FakeOutput) Write(on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, on)
	f.State = on
	return nil
}

// Close marks the output as closed.
func (f *FakeOutput) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded writes.
func (f *FakeOutput) Reset() {
	f.Writes = nil
	f.State = false
	f.WriteError = nil
	f.Closed = false
}
