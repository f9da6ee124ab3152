package service

import "errors"

var (
	// ErrInvalidInput means no usable image was supplied; reported to the
	// user immediately, before any provider call.
	ErrInvalidInput = errors.New("invalid input image")

	// ErrDiagnosisService means the diagnosis provider failed or returned
	// unusable output; surfaced to the user as an analysis failure, not
	// retried.
	ErrDiagnosisService = errors.New("diagnosis service failed")
)
