package app

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrIndexNotLoaded = errors.New("search index not loaded")
)
