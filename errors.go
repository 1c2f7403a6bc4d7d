package syncpump

import "errors"

var (
	// ErrCooldownActive signals that the remote dependency is cooling down after an outage.
	ErrCooldownActive = errors.New("syncpump remote dependency is cooling down")
	// ErrFatalHalt signals an unclassifiable condition that halted the current sync type.
	ErrFatalHalt = errors.New("syncpump sync halted")
	// ErrIncompatibleRecord marks a record that fails a local precondition and can never sync as-is.
	ErrIncompatibleRecord = errors.New("syncpump record is incompatible")
	// ErrMalformedResponse indicates a remote response that could not be classified at all.
	ErrMalformedResponse = errors.New("syncpump remote response is malformed")
	// ErrRowNotFound is returned when a forced sync names a foreign id with no source record.
	ErrRowNotFound = errors.New("syncpump outbox row not found")
)
