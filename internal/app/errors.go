package app

import (
	"fmt"
	"strings"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// PartialCascadeError reports a cascade delete that removed the activity
// but failed to remove one or more of its comments. The activity deletion
// is not rolled back; the caller retries the remaining comment deletions.
type PartialCascadeError struct {
	ActivityKey string
	Remaining   []string
}

func (e *PartialCascadeError) Error() string {
	return fmt.Sprintf("activity %s deleted but %d comment(s) remain: %s",
		e.ActivityKey, len(e.Remaining), strings.Join(e.Remaining, ", "))
}
