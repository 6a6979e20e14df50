package repocache

import "errors"

// Common repository cache errors.
var (
	// ErrInvalidRefreshPolicy is returned for an unrecognised refresh_remote_data value.
	ErrInvalidRefreshPolicy = errors.New("invalid refresh policy")

	// ErrSparseCheckoutEmpty means the sparse specification matched nothing in the
	// checked-out tree. Acquire reports it as an unsuccessful Result, never as an error.
	ErrSparseCheckoutEmpty = errors.New("sparse checkout leaves no entry in the working directory")

	// ErrInvalidRemote is returned when a remote URL cannot be handed to git safely.
	ErrInvalidRemote = errors.New("invalid remote")
)
