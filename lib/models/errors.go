package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingList means a card refers to a Status for which no Trello
	// list exists. Lists are reconciled before cards, so this is a bug.
	ErrMissingList = errors.New("no Trello list for status")
	// ErrMissingLabel means a card refers to a GitHub label for which no
	// Trello label exists.
	ErrMissingLabel = errors.New("no Trello label for GitHub label")
	// ErrMissingCard means the checklist pass found no card for an issue
	// the card pass should have handled.
	ErrMissingCard = errors.New("no Trello card for GitHub issue")
)

// ConfigurationError is returned for problems the operator has to fix:
// a required setting is missing, or a GitHub user has no Trello identity.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is not configured", e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Key, e.Message)
}

// RemoteAPIError wraps a failed call to GitHub or Trello. Body holds the
// raw response text, which is also what is kept when the response could
// not be parsed.
type RemoteAPIError struct {
	Service    string
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteAPIError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Service, e.Endpoint)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: HTTP %d", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}
