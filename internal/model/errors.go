package model

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a failure of the transaction builder.
type ErrorCode string

const (
	CodeInvalidNumericFormat  ErrorCode = "INVALID_NUMERIC_FORMAT"
	CodeInvalidSlippage       ErrorCode = "INVALID_SLIPPAGE"
	CodeUnknownCurrency       ErrorCode = "UNKNOWN_CURRENCY"
	CodeMissingField          ErrorCode = "MISSING_FIELD"
	CodePoolNotFound          ErrorCode = "POOL_NOT_FOUND"
	CodeAssetNotFound         ErrorCode = "ASSET_NOT_FOUND"
	CodeInsufficientLiquidity ErrorCode = "INSUFFICIENT_LIQUIDITY"
	CodeSubmissionFailed      ErrorCode = "SUBMISSION_FAILED"
	CodeChainRejected         ErrorCode = "CHAIN_REJECTED"
)

// Category groups error codes by how the caller should react.
type Category string

const (
	CategoryNone              Category = ""
	CategoryInputValidation   Category = "input_validation"
	CategoryStateNotFound     Category = "state_not_found"
	CategorySubmissionFailure Category = "submission_failure"
	CategoryChainRejection    Category = "chain_rejection"
)

// Category returns the category of the code.
func (c ErrorCode) Category() Category {
	switch c {
	case CodeInvalidNumericFormat, CodeInvalidSlippage, CodeUnknownCurrency, CodeMissingField:
		return CategoryInputValidation
	case CodePoolNotFound, CodeAssetNotFound, CodeInsufficientLiquidity:
		return CategoryStateNotFound
	case CodeSubmissionFailed:
		return CategorySubmissionFailure
	case CodeChainRejected:
		return CategoryChainRejection
	default:
		return CategoryNone
	}
}

// Sentinel errors for errors.Is checks. Matching is by code only.
var (
	ErrInvalidNumericFormat  = &Error{Code: CodeInvalidNumericFormat}
	ErrInvalidSlippage       = &Error{Code: CodeInvalidSlippage}
	ErrUnknownCurrency       = &Error{Code: CodeUnknownCurrency}
	ErrMissingField          = &Error{Code: CodeMissingField}
	ErrPoolNotFound          = &Error{Code: CodePoolNotFound}
	ErrAssetNotFound         = &Error{Code: CodeAssetNotFound}
	ErrInsufficientLiquidity = &Error{Code: CodeInsufficientLiquidity}
	ErrSubmissionFailed      = &Error{Code: CodeSubmissionFailed}
	ErrChainRejected         = &Error{Code: CodeChainRejected}
)

// Error is a coded builder error. None of them are retried internally.
type Error struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Errorf builds an Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around a cause.
func Wrap(code ErrorCode, err error, message string) *Error {
	return &Error{Code: code, Message: message, Wrapped: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CategoryOf returns the category of the first coded error in the chain.
func CategoryOf(err error) Category {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code.Category()
	}
	return CategoryNone
}
