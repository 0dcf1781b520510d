package repository

import "errors"

// Sentinel kinds for store errors. Returned errors wrap one of these
// together with the submission id.
var (
	ErrNotFound      = errors.New("submission not found")
	ErrAlreadyExists = errors.New("submission already exists")
	ErrNoRecordYet   = errors.New("submission has no record yet")
)
