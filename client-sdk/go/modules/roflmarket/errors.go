package roflmarket

import (
	"errors"
	"fmt"
)

// Error is a module error: a (module, code, message) triple, matching how runtime-sdk
// transactions report failures to callers. Validation errors abort the entire transaction;
// none of a failed call's state mutations are committed.
type Error struct {
	Code    uint32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", ModuleName, e.Message)
}

// Is reports whether target names the same error code, so callers can use errors.Is against
// the sentinel values below regardless of the attached message.
func (e *Error) Is(target error) bool {
	var oe *Error
	if !errors.As(target, &oe) {
		return false
	}
	return e.Code == oe.Code
}

// Error codes, matching the taxonomy of the marketplace's error handling design.
const (
	CodeInvalidArgument      uint32 = 1
	CodeForbidden            uint32 = 2
	CodeProviderAlreadyExist uint32 = 3
	CodeProviderNotFound     uint32 = 4
	CodeProviderHasInstances uint32 = 5
	CodeOfferNotFound        uint32 = 6
	CodeInstanceNotFound     uint32 = 7
	CodeInvalidInstanceState uint32 = 8
	CodeOutOfCapacity        uint32 = 9
	CodePaymentFailed        uint32 = 10
	CodeInsufficientBalance  uint32 = 11
	CodeTooManyQueuedCmds    uint32 = 12
	CodeAttestationRequired  uint32 = 13
)

func newError(code uint32, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinel errors, usable with errors.Is. Wrap with fmt.Errorf("%w: extra context", ErrX) when
// more detail is useful; errors.Is still matches on Code via (*Error).Is.
var (
	ErrInvalidArgument      = newError(CodeInvalidArgument, "invalid argument")
	ErrForbidden            = newError(CodeForbidden, "forbidden by policy")
	ErrProviderAlreadyExist = newError(CodeProviderAlreadyExist, "provider already exists")
	ErrProviderNotFound     = newError(CodeProviderNotFound, "provider not found")
	ErrProviderHasInstances = newError(CodeProviderHasInstances, "provider still has instances")
	ErrOfferNotFound        = newError(CodeOfferNotFound, "offer not found")
	ErrInstanceNotFound     = newError(CodeInstanceNotFound, "instance not found")
	ErrInvalidInstanceState = newError(CodeInvalidInstanceState, "invalid instance state")
	ErrOutOfCapacity        = newError(CodeOutOfCapacity, "offer out of capacity")
	ErrPaymentFailed        = newError(CodePaymentFailed, "payment failed")
	ErrInsufficientBalance  = newError(CodeInsufficientBalance, "insufficient balance")
	ErrTooManyQueuedCmds    = newError(CodeTooManyQueuedCmds, "too many queued commands")
	ErrAttestationRequired  = newError(CodeAttestationRequired, "attestation required")
)
