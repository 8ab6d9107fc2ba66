package state

import "errors"

var (
	// ErrNoCheckpoint is returned by Store.Load when nothing was saved yet.
	ErrNoCheckpoint = errors.New("no checkpoint found")

	// ErrCorruptCheckpoint is returned when a saved checkpoint cannot be decoded.
	ErrCorruptCheckpoint = errors.New("checkpoint is corrupt")

	// ErrCursorBeyondSeeds is returned when a checkpoint claims more processed
	// entries than the seed list holds, which means the seed list changed
	// under the checkpoint.
	ErrCursorBeyondSeeds = errors.New("checkpoint cursor is beyond the end of the seed list")
)
