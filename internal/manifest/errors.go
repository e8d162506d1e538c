package manifest

import "errors"

var (
	ErrParse = errors.New("manifest parse failed")
)
