package biz

import "errors"

var (
	ErrHashNotFound = errors.New("content hash not found")
)
