package defectio

import (
	"errors"
	"fmt"
)

// Session-level failure taxonomy. Transport and session failures are
// handled by the session manager's state machine and never reach event
// subscribers; these errors surface only through Connect, Close and
// outbound request calls.
var (
	// ErrAuthRejected means the server refused the credential. Fatal: the
	// session enters the terminal state and does not retry.
	ErrAuthRejected = errors.New("defectio: authentication rejected")

	// ErrSessionClosed is returned by operations on a session that has
	// reached the terminal state.
	ErrSessionClosed = errors.New("defectio: session closed")

	// ErrNotConnected is returned by outbound commands while no gateway
	// connection is established.
	ErrNotConnected = errors.New("defectio: not connected")

	// ErrRateLimitExhausted is returned to the caller of an outbound
	// request when the bounded rate-limit retry budget runs out. It never
	// affects the session itself.
	ErrRateLimitExhausted = errors.New("defectio: rate limit retries exhausted")
)

// CloseReason tags why a gateway connection ended.
type CloseReason int

const (
	// ReasonServerClose is a clean close initiated by the server; the
	// websocket close code is carried alongside.
	ReasonServerClose CloseReason = iota
	// ReasonConnectionError is an abrupt socket failure.
	ReasonConnectionError
	// ReasonProtocolViolation means a malformed frame was received; the
	// frame is dropped and the connection closed.
	ReasonProtocolViolation
	// ReasonHeartbeatTimeout means no heartbeat ack arrived within the
	// grace window.
	ReasonHeartbeatTimeout
	// ReasonLogout is an explicit local shutdown.
	ReasonLogout
)

func (r CloseReason) String() string {
	switch r {
	case ReasonServerClose:
		return "server close"
	case ReasonConnectionError:
		return "connection error"
	case ReasonProtocolViolation:
		return "protocol violation"
	case ReasonHeartbeatTimeout:
		return "heartbeat timeout"
	case ReasonLogout:
		return "logout"
	default:
		return "unknown"
	}
}

// Disconnect is the uniform "connection lost" value the transport surfaces
// to the session manager. The transport never decides whether to reconnect;
// Resumable is the session manager's input to that decision.
type Disconnect struct {
	Reason CloseReason
	// Code is the websocket close code for ReasonServerClose.
	Code int
	// Err is the underlying error, when one exists.
	Err error
}

// Resumable reports whether the previous session may be continued with its
// resume token. Protocol violations and logout never resume; a clean server
// close resumes unless the code indicates a normal or policy closure.
func (d Disconnect) Resumable() bool {
	switch d.Reason {
	case ReasonConnectionError, ReasonHeartbeatTimeout:
		return true
	case ReasonServerClose:
		switch d.Code {
		case 1000, 1002, 1003, 1008:
			return false
		}
		return d.Code < 4000
	default:
		return false
	}
}

func (d Disconnect) Error() string {
	msg := fmt.Sprintf("connection lost: %s", d.Reason)
	if d.Reason == ReasonServerClose {
		msg = fmt.Sprintf("%s (code %d)", msg, d.Code)
	}
	if d.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, d.Err)
	}
	return msg
}

func (d Disconnect) Unwrap() error { return d.Err }
