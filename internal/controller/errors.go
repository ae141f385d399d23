package controller

import "errors"

var (
	// ErrBusy reports that another gateway sequence is already in flight.
	// The dashboard treats it as a quiet rejection, not a failure worth a
	// status message.
	ErrBusy = errors.New("another print sequence is in flight")

	// ErrScopeMissing reports that the period or channel could not be
	// resolved. No network call has been attempted.
	ErrScopeMissing = errors.New("period or channel not resolved")

	// ErrNotEligible reports a completion attempt without an eligible
	// prepared batch.
	ErrNotEligible = errors.New("no eligible print batch to complete")

	// ErrUnsupported reports an operation the channel is not configured
	// for.
	ErrUnsupported = errors.New("operation not enabled for this channel")
)
