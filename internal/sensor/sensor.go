package sensor

// Reader reads one ambient light value from the sensor bus.
type Reader interface {
	// ReadLux returns the current illuminance in lux.
	ReadLux() (float64, error)

	// Close releases the bus.
	Close() error
}
