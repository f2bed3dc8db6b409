package lan

import "errors"

var (
	// ErrDeviceNotFound is returned when controlling a device the last discovery did not see
	ErrDeviceNotFound = errors.New("lan: device not found")

	// ErrStatusTimeout is returned when a device does not answer a status request in time
	ErrStatusTimeout = errors.New("lan: status timeout")

	// ErrMalformedReply is returned when a status reply cannot be decoded
	ErrMalformedReply = errors.New("lan: malformed reply")
)
