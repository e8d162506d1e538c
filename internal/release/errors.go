package release

import "errors"

var (
	ErrExport = errors.New("release export failed")
)
