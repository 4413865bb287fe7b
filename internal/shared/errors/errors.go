package errors

import "errors"

var (
	// ErrConfigMissing is returned when the settings file is absent or still holds placeholders.
	ErrConfigMissing = errors.New("configuration is missing or incomplete")
	// ErrFetch marks a failure to retrieve or parse an external page or feed.
	ErrFetch = errors.New("fetch failed")
	// ErrPage marks a single feed entry whose page or image could not be extracted.
	ErrPage = errors.New("entry page extraction failed")
	// ErrPersist marks a dedup store write failure.
	ErrPersist = errors.New("persist failed")
	// ErrDelivery marks a chat send or edit failure.
	ErrDelivery    = errors.New("delivery failed")
	ErrInvalidName = errors.New("invalid table name")
)
