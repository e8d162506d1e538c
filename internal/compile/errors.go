package compile

import "errors"

var (
	ErrCompile = errors.New("compile failed")
)
