package indexsync

import "errors"

// The three ways a sync operation can fail. None of them is fatal to the
// process; callers decide whether to log, skip, or requeue.
var (
	// ErrUnavailable means the availability gate was closed at call time.
	// The backend was not contacted. Treat as "not indexed yet".
	ErrUnavailable = errors.New("search backend unavailable")

	// ErrSerialization means the entry could not be turned into a document.
	// Retrying the same record will fail the same way.
	ErrSerialization = errors.New("entry serialization failed")

	// ErrBackend means the backend was reachable when the gate was checked
	// but the request itself failed.
	ErrBackend = errors.New("search backend request failed")
)
