package service

import (
	"errors"
	"fmt"
)

// Resources named by NotFoundError.
const (
	ResourceDocument    = "document"
	ResourceFileVersion = "fileVersion"
	ResourceBlob        = "blob"
	ResourceUser        = "user"
)

// Reasons carried by InvalidFileError.
const (
	ReasonEmpty       = "empty"
	ReasonTooLarge    = "too_large"
	ReasonContentType = "content_type"
	ReasonIO          = "io"
)

// ErrAuthenticationFailed is returned by Login for unknown users and wrong passwords alike.
var ErrAuthenticationFailed = errors.New("invalid username or password")

// NotFoundError reports a missing resource. Resource is ResourceBlob when the
// version row exists but its stored file does not.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.Resource == ResourceBlob {
		return fmt.Sprintf("file content for version %s is missing", e.ID)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// UnauthorizedError is returned when the caller neither owns the resource nor is an admin.
type UnauthorizedError struct {
	Operation string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("not allowed to %s", e.Operation)
}

type InvalidFileError struct {
	Reason string
	Err    error
}

func (e *InvalidFileError) Error() string {
	switch e.Reason {
	case ReasonEmpty:
		return "file is empty"
	case ReasonTooLarge:
		return "file exceeds the maximum upload size"
	case ReasonContentType:
		return "file type is not allowed"
	}
	if e.Err != nil {
		return fmt.Sprintf("file storage failed: %v", e.Err)
	}
	return "file storage failed"
}

func (e *InvalidFileError) Unwrap() error { return e.Err }

// AlreadyExistsError reports a taken username or email.
type AlreadyExistsError struct {
	Field string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is invalid", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}
