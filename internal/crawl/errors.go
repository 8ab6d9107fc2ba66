package crawl

import "errors"

// ErrInterrupted is returned when the crawl was cancelled by the operator.
// The checkpoint has been saved and a later run resumes from it.
var ErrInterrupted = errors.New("crawl interrupted")
