package hitfile

import "errors"

// Sentinel errors for hit file handling.
var (
	ErrMalformedRow = errors.New("malformed hit row")
	ErrWriteResult  = errors.New("write result failed")
)
