package worker

import "errors"

// ErrShutdownAborted is returned by Shutdown when its context ends before
// the queues are drained.
var ErrShutdownAborted = errors.New("worker pool shutdown aborted")
