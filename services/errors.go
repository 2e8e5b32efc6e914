package services

import "errors"

var (
	// ErrBadInput marks failures caused by the input spreadsheet: missing file,
	// unreadable sheet, missing required column or no usable rows.
	ErrBadInput = errors.New("bad input")

	// ErrInference marks failures of the sentiment capability, including results
	// that break its contract.
	ErrInference = errors.New("inference failure")
)
