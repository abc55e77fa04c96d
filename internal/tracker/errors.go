package tracker

import (
	"errors"
	"fmt"
)

// ErrCapabilityAbsent is returned by Start when no geolocation source exists.
var ErrCapabilityAbsent = errors.New("geolocation is not supported on this platform")

// ErrorCode mirrors the platform's position error codes.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	}
	return fmt.Sprintf("code_%d", int(c))
}

// AcquisitionError is a transient failure to obtain a fix. The watch stays
// active after one is reported.
type AcquisitionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *AcquisitionError) Error() string {
	return "location acquisition failed: " + e.Message
}

// asAcquisitionError normalizes any platform error into an AcquisitionError.
func asAcquisitionError(err error) *AcquisitionError {
	var ae *AcquisitionError
	if errors.As(err, &ae) {
		return ae
	}
	return &AcquisitionError{Code: PositionUnavailable, Message: err.Error()}
}
