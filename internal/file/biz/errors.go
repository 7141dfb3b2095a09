package biz

import "errors"

var (
	ErrFileNotFound        = errors.New("file not found")
	ErrEmptyBatch          = errors.New("batch must not be empty")
	ErrDestinationNotFound = errors.New("destination folder not found")
	ErrNameRequired        = errors.New("file name is required")
)
