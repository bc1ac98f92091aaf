package convert

import "errors"

var (
	ErrDecoderUnavailable = errors.New("BLP decoder unavailable")
	ErrSourceDirMissing   = errors.New("source texture directory not found")
	ErrDestDirMissing     = errors.New("destination icon directory not found")
	ErrInvalidTask        = errors.New("invalid conversion task")
)
