package domain

import "errors"

// Collection failure taxonomy. Callers classify with errors.Is.
var (
	// ErrDirectoryUnavailable: the stats directory cannot be listed. The cycle is skipped.
	ErrDirectoryUnavailable = errors.New("stats directory unavailable")

	// ErrVolumeListUnavailable: the storage management interface did not return volumes. The cycle is skipped.
	ErrVolumeListUnavailable = errors.New("volume list unavailable")

	// ErrIO: a dump file could not be opened or read. The file is skipped.
	ErrIO = errors.New("dump file io error")

	// ErrMalformedDump: a dump file does not hold exactly two JSON objects. The file is skipped.
	ErrMalformedDump = errors.New("malformed dump")

	// ErrDeliveryFailure: the backend rejected or never received a write. Logged only.
	ErrDeliveryFailure = errors.New("metrics delivery failure")
)
