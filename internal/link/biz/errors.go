package biz

import "errors"

var (
	ErrLinkNotFound   = errors.New("link not found")
	ErrLinkExpired    = errors.New("link expired")
	ErrLinkForbidden  = errors.New("link requires authentication")
	ErrTargetNotFound = errors.New("link target not found")
	ErrInvalidTarget  = errors.New("link target must be a file or a folder")
)
