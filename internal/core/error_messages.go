package core

// # Error Codes Reference
//
// User-facing messages carry a code that users can quote to support staff.
//
// # Dashboard Errors
//
//	SRC001  - Source unavailable: The indicator table could not be loaded
//	          Action: Check the database connection and reload
//	          Patterns: "source unavailable"
//
//	REG001  - No region column: The table has no region dimension
//	          Action: Figures are shown for all rows combined
//	          Patterns: "no region column"
//
//	SEL001  - Empty selection: No rows match the current filters
//	          Action: Widen the year range or select more regions
//	          Patterns: "no data for selection"
//
//	SRCH001 - Invalid search: The search term does not fit the column
//	          Action: Enter a number when searching numeric columns
//	          Patterns: "invalid search input"
//
//	MET001  - Metric unavailable: The requested metric is not in the table
//	          Action: Choose one of the listed metrics
//	          Patterns: "metric unavailable"
//
//	FLT001  - Invalid filter: Region or year range outside the data
//	          Action: Pick regions and years from the available values
//	          Patterns: "invalid filter"
//
//	VAL005  - Column not found: The requested column does not exist
//	          Action: Choose one of the listed columns
//	          Patterns: "column not found"
//
// # Database Errors
//
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "timeout"
//
// # Request Errors
//
//	REQ001 - System busy            Patterns: "too many concurrent loads"
//	REQ002 - Request cancelled      Patterns: "context canceled"
//	REQ003 - Request timeout        Patterns: "context deadline exceeded"
//	RATE001 - Rate limited          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Check the application logs for the
// original error.
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Dashboard Errors
	// =========================================================================
	{
		pattern: "source unavailable",
		msg: UserMessage{
			Message: "The indicator data could not be loaded",
			Action:  "Check the database connection and reload",
			Code:    "SRC001",
		},
	},
	{
		pattern: "no region column",
		msg: UserMessage{
			Message: "The data has no region column",
			Action:  "Figures are shown for all rows combined",
			Code:    "REG001",
		},
	},
	{
		pattern: "no data for selection",
		msg: UserMessage{
			Message: "No data for the current selection",
			Action:  "Widen the year range or select more regions",
			Code:    "SEL001",
		},
	},
	{
		pattern: "invalid search input",
		msg: UserMessage{
			Message: "The search term does not match the column type",
			Action:  "Enter a number when searching numeric columns",
			Code:    "SRCH001",
		},
	},
	{
		pattern: "metric unavailable",
		msg: UserMessage{
			Message: "The requested metric is not available",
			Action:  "Choose one of the listed metrics",
			Code:    "MET001",
		},
	},
	{
		pattern: "invalid filter",
		msg: UserMessage{
			Message: "The filter is outside the available data",
			Action:  "Pick regions and years from the available values",
			Code:    "FLT001",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Column not found",
			Action:  "Choose one of the listed columns",
			Code:    "VAL005",
		},
	},

	// =========================================================================
	// Database Connection Errors
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "too many concurrent loads",
		msg: UserMessage{
			Message: "The server is busy loading data",
			Action:  "Please wait a moment and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again later",
			Code:    "REQ003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches the known patterns (case-insensitive) and returns the first
// match, or the ERR000 fallback.
//
// Example:
//
//	err := fmt.Errorf("load: %w", ErrSourceUnavailable)
//	msg := MapError(err)
//	// msg.Code == "SRC001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
