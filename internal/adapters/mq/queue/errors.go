package queue

import "errors"

// ErrClosed is returned by Enqueue once the segmenter has finished and the
// queue no longer accepts events.
var ErrClosed = errors.New("event queue closed")
