package common

import "errors"

// ErrRunInProgress is returned when a scrape trigger arrives while another
// run holds the pipeline. Only one browser session may exist at a time.
var ErrRunInProgress = errors.New("menu pipeline run already in progress")
