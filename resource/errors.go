package resource

import (
	"errors"
	"fmt"
	"strings"
)

// A Class categorizes an error by how it is handled.
type Class int

// Error classes.
const (
	// ClassNone is the class of unclassified errors.
	ClassNone Class = iota
	UnknownKind
	UnknownField
	InvalidValue
	DependencyCycle
	AuthInvalid
	ServiceUnavailable
	VersionIncompatible
	TransientRemote
	PermanentRemote
	AmbiguousRemote
	Conflict
	UnresolvableReference
	Canceled
)

var classNames = map[Class]string{
	ClassNone:             "Error",
	UnknownKind:           "UnknownKind",
	UnknownField:          "UnknownField",
	InvalidValue:          "InvalidValue",
	DependencyCycle:       "DependencyCycle",
	AuthInvalid:           "AuthInvalid",
	ServiceUnavailable:    "ServiceUnavailable",
	VersionIncompatible:   "VersionIncompatible",
	TransientRemote:       "TransientRemote",
	PermanentRemote:       "PermanentRemote",
	AmbiguousRemote:       "AmbiguousRemote",
	Conflict:              "Conflict",
	UnresolvableReference: "UnresolvableReference",
	Canceled:              "Canceled",
}

func (c Class) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// MarshalText encodes the class name.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Config reports whether the class is a configuration error, detected before
// any remote call is made.
func (c Class) Config() bool {
	switch c {
	case UnknownKind, UnknownField, InvalidValue, DependencyCycle:
		return true
	}
	return false
}

// An Error is a classified error.
type Error struct {
	Class    Class
	Kind     string
	Key      Key
	Location Location
	Attempts int
	Err      error
}

// Error formats the error with its location and item, if set.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Location.IsSet() {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	if e.Kind != "" {
		b.WriteString(e.Kind)
		if len(e.Key) > 0 {
			b.WriteString(" ")
			b.WriteString(e.Key.String())
		}
		b.WriteString(": ")
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Class.String())
	}
	if e.Attempts > 1 {
		fmt.Fprintf(&b, " (after %d attempts)", e.Attempts)
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Errorf creates a new classified error.
func Errorf(class Class, format string, args ...interface{}) error {
	return &Error{Class: class, Err: fmt.Errorf(format, args...)}
}

// Classify attaches a class to err. If err already has a class, the outer
// class wins when unwrapping with ClassOf.
func Classify(class Class, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Err: err}
}

// ClassOf returns the class of the first classified error in the chain. An
// unclassified error returns ClassNone.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassNone
}

// AttemptsOf returns the highest attempt count attached to any error in the
// chain. An error without an attempt count made one attempt.
func AttemptsOf(err error) int {
	n := 0
	for err != nil {
		if e, ok := err.(*Error); ok && e.Attempts > n {
			n = e.Attempts
		}
		err = errors.Unwrap(err)
	}
	if n == 0 {
		n = 1
	}
	return n
}

// ErrSkipped is returned when an optional service is not available. Kinds
// hosted by a skipped service are not reconciled.
var ErrSkipped = errors.New("service skipped")
