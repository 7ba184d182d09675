package core

import (
	"errors"
)

var (
	ErrOutOfMemory        = errors.New("out of device memory")
	ErrNotInitialized     = errors.New("system not initialized")
	ErrAlreadyInitialized = errors.New("system already initialized")
	ErrNothingToRender    = errors.New("nothing to render: no pipeline loaded and no declare callback")
)
