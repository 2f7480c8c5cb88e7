package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Class is the stable category attached to an error at the transport boundary.
// Retry policies match on the class instead of re-deriving status codes.
type Class string

const (
	ClassUnauthorized Class = "unauthorized"
	ClassNotFound     Class = "not_found"
	ClassBadRequest   Class = "bad_request"
	ClassTransient    Class = "transient"
	ClassStructural   Class = "structural"
	ClassOther        Class = "other"
)

// Classes lists every classification, in a stable order.
func Classes() []Class {
	return []Class{ClassUnauthorized, ClassNotFound, ClassBadRequest, ClassTransient, ClassStructural, ClassOther}
}

// Error is an error tagged with its classification.
type Error struct {
	Class  Class
	Status int
	Op     string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Class)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New tags err with class.
func New(class Class, op string, err error) *Error {
	return &Error{Class: class, Op: op, Err: err}
}

// Structural reports a malformed payload.
func Structural(op string, err error) *Error {
	return New(ClassStructural, op, err)
}

// FromStatus converts an HTTP status into a classified error.
func FromStatus(status int, op string, err error) *Error {
	return &Error{Class: ClassForStatus(status), Status: status, Op: op, Err: err}
}

// ClassForStatus maps an HTTP status to its classification.
func ClassForStatus(status int) Class {
	switch {
	case status == http.StatusUnauthorized:
		return ClassUnauthorized
	case status == http.StatusNotFound:
		return ClassNotFound
	case status == http.StatusBadRequest:
		return ClassBadRequest
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return ClassTransient
	default:
		return ClassOther
	}
}

// Classify recovers the classification of err. Untagged errors and deadline
// expiries count as transient.
func Classify(err error) Class {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe.Class != "" {
		return fe.Class
	}
	return ClassTransient
}

// Is reports whether err carries class.
func Is(err error, class Class) bool {
	return err != nil && Classify(err) == class
}

// Terminal reports whether the class can never succeed on retry for a read.
func (c Class) Terminal() bool {
	switch c {
	case ClassUnauthorized, ClassNotFound, ClassBadRequest:
		return true
	default:
		return false
	}
}
