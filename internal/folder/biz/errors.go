package biz

import "errors"

var (
	ErrFolderNotFound      = errors.New("folder not found")
	ErrBinNotFound         = errors.New("bin folder not found")
	ErrFolderCycle         = errors.New("folder ancestry contains a cycle")
	ErrMoveIntoDescendant  = errors.New("cannot move a folder into its own subtree")
	ErrEmptyBatch          = errors.New("batch must not be empty")
	ErrDestinationNotFound = errors.New("destination folder not found")
	ErrNameRequired        = errors.New("folder name is required")
)
