package store

import "errors"

// Sentinel errors for store lookups.
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrBookExists          = errors.New("book already exists")
	ErrCollectionNotFound  = errors.New("collection not found")
	ErrCollectionExists    = errors.New("collection already exists")
	ErrPreferencesNotFound = errors.New("preferences not found")
	ErrBlobNotFound        = errors.New("archive blob not found")
)
