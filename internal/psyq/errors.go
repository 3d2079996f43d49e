package psyq

import (
	"errors"
	"fmt"

	"objdis/internal/binio"
)

// Error kinds. A FormatError unwraps to one of these.
var (
	ErrBadMagic             = errors.New("bad magic")
	ErrUnsupportedChunk     = errors.New("unsupported chunk")
	ErrUnsupportedPatchType = errors.New("unsupported patch type")
	ErrUnsupportedCPU       = errors.New("unsupported cpu")
	ErrUnsupportedOperator  = errors.New("unsupported expression operator")
	ErrNoSection            = errors.New("no current section")
	ErrIO                   = errors.New("i/o failure")
	ErrTruncated            = binio.ErrTruncated
)

// FormatError reports a fatal problem found while decoding a file.
type FormatError struct {
	Err    error
	Offset int64
	Detail string
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at 0x%X", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v at 0x%X: %s", e.Err, e.Offset, e.Detail)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(kind error, off int64, format string, args ...any) error {
	return &FormatError{Err: kind, Offset: off, Detail: fmt.Sprintf(format, args...)}
}
