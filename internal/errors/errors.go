package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess  Code = 0
	CodeInternal Code = 1
	CodeUsage    Code = 2

	CodeConfig              Code = 20
	CodeWalletUnavailable   Code = 21
	CodeUserRejected        Code = 22
	CodeNetwork             Code = 23
	CodeContractRevert      Code = 24
	CodeUnboundRole         Code = 25
	CodeTransactionRejected Code = 26
	CodeInvalidIntent       Code = 27
)

var codeNames = map[Code]string{
	CodeSuccess:             "ok",
	CodeInternal:            "internal_error",
	CodeUsage:               "usage_error",
	CodeConfig:              "config_error",
	CodeWalletUnavailable:   "wallet_unavailable",
	CodeUserRejected:        "user_rejected",
	CodeNetwork:             "network_error",
	CodeContractRevert:      "contract_revert",
	CodeUnboundRole:         "unbound_role",
	CodeTransactionRejected: "transaction_rejected",
	CodeInvalidIntent:       "invalid_intent",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", int(c))
}

// Error is a typed error that carries a stable error code.
// Reason holds the decoded revert reason for CodeContractRevert.
type Error struct {
	Code    Code
	Message string
	Reason  string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s (reason: %s)", msg, e.Reason)
	}
	if e.Cause == nil {
		return msg
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Revert builds a CodeContractRevert error carrying the on-chain reason.
func Revert(message, reason string, cause error) *Error {
	return &Error{Code: CodeContractRevert, Message: message, Reason: reason, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	typed, ok := As(err)
	return ok && typed.Code == code
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if typed, ok := As(err); ok {
		return int(typed.Code)
	}
	return int(CodeInternal)
}
