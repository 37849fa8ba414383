package domain

import "errors"

var (
	// ErrPartitionMissing is returned when the event log has no partition
	// covering the event time. It triggers exactly one provision-and-retry
	// cycle in the grant executor and is never surfaced to API callers.
	ErrPartitionMissing = errors.New("no event log partition covers the event time")

	// ErrInvalidAmount is returned when a grant amount is zero or negative.
	ErrInvalidAmount = errors.New("grant amount must be a positive integer")
)
