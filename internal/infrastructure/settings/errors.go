package settings

import "errors"

// Sentinel errors for the settings store.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrKeyNotFound is returned by Get when the namespace/key pair
	// does not exist in the store.
	ErrKeyNotFound = errors.New("settings: key not found")
)
