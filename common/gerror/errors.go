package gerror

import (
	"errors"
)

const (
	ErrCodeInternal         Code = "Internal"
	ErrCodeValidationFailed Code = "ValidationFailed"
	ErrCodeNotFound         Code = "NotFound"
	ErrCodeAlreadyExists    Code = "AlreadyExists"
	ErrCodeTimeout          Code = "Timeout"
	ErrCodeUnknownTask      Code = "UnknownTask"
	ErrCodeDependencyFailed Code = "DependencyFailed"
	ErrCodeDependencyCycle  Code = "DependencyCycle"
	ErrCodeRetryExhausted   Code = "RetryExhausted"
	ErrCodeQueueFull        Code = "QueueFull"
	ErrCodeStateCorrupt     Code = "StateCorrupt"
)

// ToError locates an Error in the provided error chain and returns it if it
// matches the provided code. Otherwise, returns nil.
func ToError(err error, code Code) *Error {
	if err == nil {
		return nil
	}
	var gErr Error
	if errors.As(err, &gErr) && gErr.Code() == code {
		return &gErr
	}
	return nil
}

func NewErrInternal(message string, err error) Error {
	return NewError(message, AudienceInternal, ErrCodeInternal, err)
}

func ToInternal(err error) *Error {
	return ToError(err, ErrCodeInternal)
}

func IsInternal(err error) bool {
	return ToInternal(err) != nil
}

func NewErrValidationFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeValidationFailed, nil)
}

func ToValidationFailed(err error) *Error {
	return ToError(err, ErrCodeValidationFailed)
}

func IsValidationFailed(err error) bool {
	return ToValidationFailed(err) != nil
}

func NewErrNotFound(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeNotFound, nil)
}

func ToNotFound(err error) *Error {
	return ToError(err, ErrCodeNotFound)
}

func IsNotFound(err error) bool {
	return ToNotFound(err) != nil
}

func NewErrAlreadyExists(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeAlreadyExists, nil)
}

func ToAlreadyExists(err error) *Error {
	return ToError(err, ErrCodeAlreadyExists)
}

func IsAlreadyExists(err error) bool {
	return ToAlreadyExists(err) != nil
}

func NewErrTimeout(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeTimeout, nil)
}

func ToTimeout(err error) *Error {
	return ToError(err, ErrCodeTimeout)
}

func IsTimeout(err error) bool {
	return ToTimeout(err) != nil
}

func NewErrUnknownTask(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeUnknownTask, nil)
}

func ToUnknownTask(err error) *Error {
	return ToError(err, ErrCodeUnknownTask)
}

func IsUnknownTask(err error) bool {
	return ToUnknownTask(err) != nil
}

func NewErrDependencyFailed(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeDependencyFailed, nil)
}

func ToDependencyFailed(err error) *Error {
	return ToError(err, ErrCodeDependencyFailed)
}

func IsDependencyFailed(err error) bool {
	return ToDependencyFailed(err) != nil
}

func NewErrDependencyCycle(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeDependencyCycle, nil)
}

func ToDependencyCycle(err error) *Error {
	return ToError(err, ErrCodeDependencyCycle)
}

func IsDependencyCycle(err error) bool {
	return ToDependencyCycle(err) != nil
}

func NewErrRetryExhausted(message string, err error) Error {
	return NewError(message, AudienceExternal, ErrCodeRetryExhausted, err)
}

func ToRetryExhausted(err error) *Error {
	return ToError(err, ErrCodeRetryExhausted)
}

func IsRetryExhausted(err error) bool {
	return ToRetryExhausted(err) != nil
}

func NewErrQueueFull(message string) Error {
	return NewError(message, AudienceExternal, ErrCodeQueueFull, nil)
}

func ToQueueFull(err error) *Error {
	return ToError(err, ErrCodeQueueFull)
}

func IsQueueFull(err error) bool {
	return ToQueueFull(err) != nil
}

func NewErrStateCorrupt(message string, err error) Error {
	return NewError(message, AudienceInternal, ErrCodeStateCorrupt, err)
}

func ToStateCorrupt(err error) *Error {
	return ToError(err, ErrCodeStateCorrupt)
}

func IsStateCorrupt(err error) bool {
	return ToStateCorrupt(err) != nil
}
