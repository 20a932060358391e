package service

import "errors"

// ErrAbandoned marks a job dropped before dispatch because its contact or
// question set could not be resolved. Abandoned jobs are not retried.
var ErrAbandoned = errors.New("job abandoned")

// ErrDispatchUnavailable marks a start attempt that hit a store outage while
// preparing the head job. The job is put back at the head of the queue.
var ErrDispatchUnavailable = errors.New("dispatch dependencies unavailable")
