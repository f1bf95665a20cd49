package license

import (
	"errors"
	"fmt"
)

// Kind classifies a license failure.
type Kind string

const (
	KindFormat       Kind = "format"
	KindSignature    Kind = "signature"
	KindExpired      Kind = "expired"
	KindTierMismatch Kind = "tier_mismatch"
	KindProvider     Kind = "provider"
	KindTransport    Kind = "transport"
	KindNotFound     Kind = "not_found"
	KindAuth         Kind = "auth"
	KindValidation   Kind = "validation"
	KindInternal     Kind = "internal"
)

// Error pairs a machine-readable kind with human-readable detail.
// Validation details carry no secret material and are safe to return
// to callers verbatim.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, defaulting to internal for
// anything that is not a license error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
