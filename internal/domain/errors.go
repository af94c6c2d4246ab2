package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidBatch = errors.New("invalid review batch")
	ErrUpstream     = errors.New("upstream unavailable")
)
