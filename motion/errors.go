package motion

import "errors"

var (
	// ErrNoSample is returned by a Sampler that has not seen a reading yet.
	ErrNoSample = errors.New("no sensor sample yet")

	// ErrMalformedSample is returned by ParseSample for a line that is not
	// three integers.
	ErrMalformedSample = errors.New("malformed sensor sample")

	// ErrSensorClosed is returned once the sensor stream has ended.
	ErrSensorClosed = errors.New("sensor stream closed")
)
