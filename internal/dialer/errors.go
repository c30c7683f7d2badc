package dialer

import "errors"

// Transition guard rejections. These surface synchronously to the
// operator with a descriptive reason; they never abort a loop.
var (
	ErrAlreadyRunning = errors.New("dialer: campaign is already running")
	ErrNotRunning     = errors.New("dialer: campaign is not running")
	ErrNotPaused      = errors.New("dialer: campaign is not paused")
	ErrNotStoppable   = errors.New("dialer: campaign is neither running nor paused")
	ErrNoContacts     = errors.New("dialer: campaign has no contacts")
	ErrAllCalled      = errors.New("dialer: all numbers already called")
)
