package utils

import (
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const retryBackoffRoundRatio = time.Millisecond / time.Nanosecond

// Retry calls f with exponential backoff until it succeeds, returns a
// backoff.Permanent error, or timeout has elapsed. A timeout of zero or
// less makes a single attempt.
func Retry[T any](log *logrus.Entry, timeout time.Duration, f func() (T, error)) (T, error) {
	var ret T

	op := func() error {
		var err error
		ret, err = f()
		return err
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if timeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.MaxElapsedTime = timeout
		b = eb
	}

	err := backoff.RetryNotify(op, b, func(err error, duration time.Duration) {
		// Round to a whole number of milliseconds
		duration /= retryBackoffRoundRatio
		duration *= retryBackoffRoundRatio

		log.Errorf("Error performing operation; retrying in %v: %v", duration, err)
	})

	return ret, err
}

// newlineReplaceRegex matches both "\r\n" and "\n" so they can be escaped
// in log output.
var newlineReplaceRegex = regexp.MustCompile("\r?\n")

// Truncate replaces newlines with the characters "\n" and cuts the string
// down to at most length bytes.
func Truncate(s string, length int) string {
	if s == "" {
		return "empty"
	}

	s = newlineReplaceRegex.ReplaceAllString(s, "\\n")
	if len(s) <= length {
		return s
	}
	return fmt.Sprintf("%s...", s[0:length])
}
