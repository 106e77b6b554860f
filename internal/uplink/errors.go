package uplink

import "errors"

var (
	// ErrConfiguration indicates missing or unusable link credentials.
	ErrConfiguration = errors.New("uplink: configuration error")

	// ErrLinkFailed indicates the retry budget was exhausted without the
	// link coming up.
	ErrLinkFailed = errors.New("uplink: link failed")

	// ErrAlreadyStarted indicates Init was called twice.
	ErrAlreadyStarted = errors.New("uplink: already started")
)
