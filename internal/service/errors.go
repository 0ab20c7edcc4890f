package service

import "errors"

var (
	// ErrJobInFlight rejects a new job while the image is already
	// processing. Overlapping jobs on one image would race to overwrite
	// each other's terminal state, so the second caller loses.
	ErrJobInFlight = errors.New("image already has a job in flight")

	// ErrNotOwner means the image exists but belongs to someone else.
	ErrNotOwner = errors.New("image does not belong to caller")
)
