package errdefs

import (
	"context"
	"fmt"
	"io"
	"syscall"

	"github.com/mholt/archives"
	"github.com/pkg/errors"
)

// Status is the coarse outcome of a codec call.
type Status int

// Known statuses, numbered like the ARCHIVE_* return codes of libarchive.
const (
	StatusOK      Status = 0
	StatusEOF     Status = 1
	StatusRetry   Status = -10
	StatusWarn    Status = -20
	StatusFailed  Status = -25
	StatusFatal   Status = -30
	StatusUnknown Status = -1 << 31
)

// StatusFromCode maps a numeric code to a Status. Unrecognized codes map to
// StatusUnknown.
func StatusFromCode(code int) Status {
	switch s := Status(code); s {
	case StatusOK, StatusEOF, StatusRetry, StatusWarn, StatusFailed, StatusFatal:
		return s
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "Ok"
	case StatusEOF:
		return "Eof"
	case StatusRetry:
		return "Retry"
	case StatusWarn:
		return "Warn"
	case StatusFailed:
		return "Failed"
	case StatusFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// StatusOf classifies an error returned by the codec or the OS.
func StatusOf(err error) Status {
	var ierr *InternalError
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &ierr):
		return ierr.Status
	case errors.Is(err, io.EOF):
		return StatusEOF
	case errors.Is(err, syscall.EINTR), errors.Is(err, syscall.EAGAIN):
		return StatusRetry
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, archives.NoMatch),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, ErrSessionClosed):
		return StatusFatal
	default:
		return StatusFailed
	}
}

// InternalError wraps a codec failure with its status and numeric code.
type InternalError struct {
	Status Status
	Code   int
	Err    error
}

// Internal wraps err into an InternalError classified with StatusOf. The code
// is the errno carried by err if any, the status value otherwise.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var ierr *InternalError
	if errors.As(err, &ierr) {
		return err
	}
	return InternalStatus(StatusOf(err), err)
}

// InternalStatus wraps err into an InternalError with the given status.
func InternalStatus(status Status, err error) error {
	code := int(status)
	var errno syscall.Errno
	if errors.As(err, &errno) {
		code = int(errno)
	}
	return &InternalError{
		Status: status,
		Code:   code,
		Err:    err,
	}
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("codec internal error: %s (%d)", e.Status, e.Code)
	}
	return fmt.Sprintf("codec internal error: %s (%d): %v", e.Status, e.Code, e.Err)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Cause implements the github.com/pkg/errors causer interface.
func (e *InternalError) Cause() error {
	return e.Err
}
