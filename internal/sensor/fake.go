package sensor

import "errors"

// FakeReader is a test double that returns scripted lux values.
type FakeReader struct {
	// Samples contains scripted lux values. Each call to ReadLux consumes
	// the next one.
	Samples []float64

	index int

	// Closed tracks if Close was called.
	Closed bool

	// ReadError, if set, will be returned by ReadLux.
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples ...float64) *FakeReader {
	return &FakeReader{Samples: samples}
}

// ReadLux returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) ReadLux() (float64, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the reader to the first sample.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Closed = false
}
