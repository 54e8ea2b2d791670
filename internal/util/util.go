package util

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LoggingNewError creates a new error from the message, logs it, and returns it
func LoggingNewError(msg string) error {
	err := errors.New(msg)
	logrus.Error(err)
	return err
}

// LoggingNewErrorf creates a new error from the formatted message, logs it, and returns it
func LoggingNewErrorf(msg string, args ...any) error {
	return LoggingNewError(errors.Errorf(msg, args...).Error())
}

// LoggingErrorMsg wraps an error with a message, logs it, and returns the wrapped error
func LoggingErrorMsg(err error, msg string) error {
	logrus.WithError(err).Error(SanitizeLog(msg))
	if err == nil {
		return errors.New(msg)
	}
	return errors.Wrap(err, msg)
}

// LoggingErrorMsgf wraps an error with a formatted message, logs it, and returns the wrapped error
func LoggingErrorMsgf(err error, msg string, args ...any) error {
	return LoggingErrorMsg(err, errors.Errorf(msg, args...).Error())
}

// SanitizeLog prevents certain classes of injection attacks before logging
// https://codeql.github.com/codeql-query-help/go/go-log-injection/
func SanitizeLog(log string) string {
	escapedLog := strings.ReplaceAll(log, "\n", "")
	return strings.ReplaceAll(escapedLog, "\r", "")
}

// Is2xxResponse returns true if the given status code is a 2xx response
func Is2xxResponse(statusCode int) bool {
	return statusCode/100 == 2
}
