package errs

import "errors"

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrForbidden         = errors.New("forbidden")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrSelfMessage       = errors.New("sender and receiver must differ")
	ErrUnknownEvent      = errors.New("unknown event")
	ErrInvalidArgument   = errors.New("invalid argument")
)
