package entity

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
type Kind string

const (
	KindValidation           Kind = "Validation"
	KindUnsupportedVersion   Kind = "UnsupportedVersion"
	KindDuplicateContentFile Kind = "DuplicateContentFile"
	KindUnknownEntityType    Kind = "UnknownEntityType"
	KindIntegrity            Kind = "Integrity"
	KindInternal             Kind = "Internal"
)

// Error is the package's structured error type.
//
// RuleID is a stable identifier (e.g. ENTITY-VAL-001) naming the violated
// rule. Subject carries the offending value when there is one (the
// duplicated file name, the unknown type, the retired version).
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Subject string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, subject, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Subject: subject, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
