package app

import "errors"

var (
	ErrLockTimeout = errors.New("destination is locked by another iconconv run")
	errLockBusy    = errors.New("destination lock busy")
)

const (
	ExitOK      = 0
	ExitFatal   = 1
	ExitUsage   = 2
	ExitPartial = 3
)
