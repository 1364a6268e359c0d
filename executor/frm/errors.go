package frm

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/alpacahq/framestore/utils/io"
	"github.com/alpacahq/framestore/utils/log"
)

var (
	// ErrUnsupported is returned for capabilities a column shape does not
	// have and for data movement between incompatible shapes.
	ErrUnsupported = errors.New("unsupported frame column operation")
	// ErrShortCopy marks a descriptor copy that moved fewer bytes than asked.
	ErrShortCopy = errors.New("short copy")
)

// PreconditionError is a programming error by the caller: negative adjusted
// offsets or counts, opening a handle twice, and the like.
type PreconditionError string

func (msg PreconditionError) Error() string {
	return errReport("%s: frame column precondition violated", string(msg))
}

func errReport(base string, msg string) string {
	base = io.GetCallerFileContext(2) + ":" + base
	log.Error(base, msg)
	return fmt.Sprintf(base, msg)
}

// Detail is one diagnostic key/value of a CriticalError.
type Detail struct {
	Key   string
	Value interface{}
}

// CriticalError is a non-recoverable I/O failure on a column file. Errno is
// zero when the failure did not come from the OS, e.g. a short copy.
type CriticalError struct {
	Errno   unix.Errno
	Msg     string
	Details []Detail
	Cause   error
}

// Critical builds a CriticalError, taking the errno from cause when there is one.
func Critical(cause error, msg string, details ...Detail) *CriticalError {
	e := &CriticalError{Msg: msg, Details: details, Cause: cause}
	var errno unix.Errno
	if errors.As(cause, &errno) {
		e.Errno = errno
	}
	return e
}

// D is shorthand for a Detail.
func D(key string, value interface{}) Detail {
	return Detail{Key: key, Value: value}
}

func (e *CriticalError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Msg)
	sb.WriteString(" [errno=")
	fmt.Fprintf(&sb, "%d", int(e.Errno))
	for _, d := range e.Details {
		fmt.Fprintf(&sb, ", %s=%v", d.Key, d.Value)
	}
	sb.WriteByte(']')
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

func (e *CriticalError) Unwrap() error {
	return e.Cause
}

// Detail returns the value recorded under key.
func (e *CriticalError) Detail(key string) (interface{}, bool) {
	for _, d := range e.Details {
		if d.Key == key {
			return d.Value, true
		}
	}
	return nil, false
}

// IsCritical reports whether err carries a CriticalError.
func IsCritical(err error) bool {
	var ce *CriticalError
	return errors.As(err, &ce)
}
