// Package upnperror implements the error taxonomy shared by the SOAP,
// GENA and service layers: SOAP faults carried as a numeric UPnP error
// code plus an optional description, and the transport-level error
// kinds (timeout, unreachable, malformed response) that wrap the
// underlying network error.
package upnperror

import "fmt"

// ErrorCode enumerates the well-known UPnP action error codes from
// spec.md §7 plus the service-specific 700-series codes concrete
// services raise.
type ErrorCode int

const (
	InvalidAction          ErrorCode = 401
	InvalidArgs            ErrorCode = 402
	ActionFailed           ErrorCode = 501
	PreconditionFailed     ErrorCode = 412
	TransitionNotAvailable ErrorCode = 701
	NoContents             ErrorCode = 702
	SeekModeNotSupported   ErrorCode = 710
	IllegalSeekTarget      ErrorCode = 711
	InvalidInstanceID      ErrorCode = 718
	InvalidArguments       ErrorCode = 402
)

// UPnPError is a SOAP fault: a numeric error code with an optional
// human-readable description. It is the error a device-side action
// handler returns to have the dispatcher translate it into a
// `<s:Fault>` body (spec.md §6, §4.6).
type UPnPError struct {
	Code        ErrorCode
	Description string
}

func NewUPnPError(code ErrorCode, description string) *UPnPError {
	return &UPnPError{Code: code, Description: description}
}

func (e *UPnPError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("UPnP error %d", e.Code)
	}
	return fmt.Sprintf("UPnP error %d: %s", e.Code, e.Description)
}

// ActionFailedError is the catch-all fault the dispatcher substitutes
// for any handler error that is not already a *UPnPError.
func ActionFailedError() *UPnPError {
	return &UPnPError{Code: ActionFailed, Description: "Action Failed"}
}

// AsUPnPError unwraps err down to a *UPnPError, falling back to
// ActionFailedError() for anything else. Used by the action dispatcher
// (spec.md §4.6: "any other exception produces 500 / ActionFailed
// (501)").
func AsUPnPError(err error) *UPnPError {
	if err == nil {
		return nil
	}
	if upnpErr, ok := err.(*UPnPError); ok {
		return upnpErr
	}
	return ActionFailedError()
}

// TimeoutError indicates an HTTP client request exceeded its deadline.
type TimeoutError struct {
	Action string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("action %s timed out", e.Action)
}

// UnreachableError indicates a network-level failure reaching the peer.
type UnreachableError struct {
	Action string
	Err    error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("action %s unreachable: %v", e.Action, e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// InvalidResponseError indicates a response could not be parsed as a
// well-formed HTTP message or SOAP envelope.
type InvalidResponseError struct {
	Reason string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response: %s", e.Reason)
}

// SubscriptionLostError indicates a renewal failed and the client-side
// subscription is no longer valid (spec.md §4.5 "Renewal").
type SubscriptionLostError struct {
	SID string
	Err error
}

func (e *SubscriptionLostError) Error() string {
	return fmt.Sprintf("subscription %s lost: %v", e.SID, e.Err)
}

func (e *SubscriptionLostError) Unwrap() error { return e.Err }

// InvalidSubscriptionIDError indicates a GENA request referenced an SID
// the device does not recognise (HTTP 412 per §6).
type InvalidSubscriptionIDError struct {
	SID string
}

func (e *InvalidSubscriptionIDError) Error() string {
	return fmt.Sprintf("invalid subscription id: %s", e.SID)
}
