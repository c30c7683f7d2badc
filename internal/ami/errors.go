package ami

import "errors"

// ErrLoginRejected means the PBX refused the supplied credentials.
var ErrLoginRejected = errors.New("ami: login rejected")

// ErrClosed means the client has been closed and cannot send actions.
var ErrClosed = errors.New("ami: client closed")

// ConnectError reports a failure to establish or authenticate the AMI
// session. It is fatal to the campaign run that requested it.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return "ami: connect " + e.Addr + ": " + e.Err.Error()
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ProtocolError reports a transport or framing failure on an established
// session. Callers recover per-call; the session may still be usable.
type ProtocolError struct {
	Action string
	Err    error
}

func (e *ProtocolError) Error() string {
	return "ami: " + e.Action + ": " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error { return e.Err }
