package entrybook

import "errors"

var (
	// ErrStorageUnavailable means the store file could not be opened or
	// read. At startup it is fatal.
	ErrStorageUnavailable = errors.New("entrybook: storage unavailable")

	// ErrStorageWrite means a write statement failed. Nothing was
	// changed and the caller may retry.
	ErrStorageWrite = errors.New("entrybook: storage write failed")
)
