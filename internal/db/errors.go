package db

import "errors"

// Domain-level database error sentinels.
var (
	// Report errors
	ErrReportNotFound = errors.New("report not found")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)
