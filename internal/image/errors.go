package image

import "errors"

var (
	ErrStore      = errors.New("image store operation failed")
	ErrEmptyIndex = errors.New("empty image index")
)
