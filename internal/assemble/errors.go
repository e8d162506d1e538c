package assemble

import "errors"

var (
	ErrAssemble = errors.New("image assembly failed")
)
