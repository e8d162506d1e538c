package cache

import (
	"errors"
	"fmt"
)

var (
	ErrFetch = errors.New("dependency fetch failed")

	// The package could not be retrieved right now, but may exist.
	// Network errors and server-side failures land here.
	ErrTransient = fmt.Errorf("%w: transient", ErrFetch)

	// The package does not exist at its locked source, or its content does
	// not match the locked checksum. Retrying cannot succeed.
	ErrPackageMissing = fmt.Errorf("%w: package unavailable", ErrFetch)
)
