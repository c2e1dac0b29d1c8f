package tally

import "errors"

var (
	// A repository could not be synchronized or its history walked.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	// Invalid concurrency, limit or mode settings.
	ErrConfiguration = errors.New("configuration error")

	// The store backing commit-id deduplication could not be set up.
	ErrDedupStoreUnavailable = errors.New("dedup store unavailable")
)
