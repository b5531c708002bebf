package core

// Error Codes Reference
//
// This file maps technical errors to user-friendly messages with codes for
// support reference. Codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the configured size limit
//	          Patterns: "file too large"
//
//	FILE002 - Malformed file: File could not be decoded as delimited text
//	          Patterns: "cannot decode", "wrong number of fields", "bare \" in non-quoted-field"
//
//	FILE003 - Duplicate header: A header name appears more than once
//	          Patterns: "duplicate header"
//
//	FILE004 - File not found: A referenced file does not exist
//	          Patterns: "no such file", "file does not exist", "file not found"
//
//	FILE005 - Empty file: The file has no data rows
//	          Patterns: "no data rows"
//
//	FILE006 - Path outside data directory
//	          Patterns: "outside the data directory"
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Missing column: A mapped column is not in the file header
//	         Patterns: "missing column"
//
//	MAP002 - Invalid mapping: The column mapping document is not usable
//	         Patterns: "invalid column mapping", "invalid csv_files"
//
//	MAP003 - Unknown object type
//	         Patterns: "unknown object type"
//
// # Build Errors (BLD001-BLD099)
//
//	BLD001 - Non-numeric value in a numeric role
//	         Patterns: "is not a number"
//
//	BLD002 - Non-integer vertex index
//	         Patterns: "is not an integer"
//
//	BLD003 - Duplicate hole identifier in the collar table
//	         Patterns: "duplicate hole"
//
//	BLD004 - Other malformed input
//	         Patterns: "malformed input"
//
// # Storage Errors (STO001-STO099)
//
//	STO001 - Object path already exists
//	         Patterns: "already exists", "duplicate key", "unique constraint"
//
//	STO002 - Storage unreachable
//	         Patterns: "connection refused", "connection reset"
//
//	STO003 - Persistence failure (fallback for sink errors)
//	         Patterns: "persistence failure"
//
//	STO004 - Object store disabled
//	         Patterns: "no object store configured"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Too many builds in progress: "too many concurrent builds"
//	REQ002 - Rate limited: "rate limit"
//	REQ003 - Request cancelled: "context canceled"
//	REQ004 - Request timeout: "context deadline exceeded"
//	REQ005 - Invalid request envelope: "invalid build request"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches. Check application logs for
// the original technical error.
//
// Patterns are matched case-insensitively using strings.Contains and the
// first match wins, so specific patterns come before general ones.

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

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file or raise BUILD_MAX_FILE_SIZE",
			Code:    "FILE001",
		},
	},
	{
		pattern: "duplicate header",
		msg: UserMessage{
			Message: "A column header appears more than once",
			Action:  "Rename or remove the repeated header",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no data rows",
		msg: UserMessage{
			Message: "The file has no data rows",
			Action:  "Provide a file with a header and at least one row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "outside the data directory",
		msg: UserMessage{
			Message: "File path is outside the data directory",
			Action:  "Use a path relative to the configured data directory",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "Referenced file does not exist",
			Action:  "Check the paths in csv_files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file does not exist",
		msg: UserMessage{
			Message: "Referenced file does not exist",
			Action:  "Check the paths in csv_files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file not found",
		msg: UserMessage{
			Message: "Referenced file does not exist",
			Action:  "Check the paths in csv_files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "cannot decode",
		msg: UserMessage{
			Message: "File could not be read as delimited text",
			Action:  "Save the file as UTF-8 CSV with a consistent delimiter",
			Code:    "FILE002",
		},
	},

	// =========================================================================
	// Mapping Errors
	// =========================================================================
	{
		pattern: "missing column",
		msg: UserMessage{
			Message: "A mapped column is not present in the file header",
			Action:  "Column names are case-sensitive; check column_mapping against the header",
			Code:    "MAP001",
		},
	},
	{
		pattern: "invalid column mapping",
		msg: UserMessage{
			Message: "The column mapping could not be read",
			Action:  "Check the column_mapping shape for this object type",
			Code:    "MAP002",
		},
	},
	{
		pattern: "invalid csv_files",
		msg: UserMessage{
			Message: "The file role mapping could not be read",
			Action:  "csv_files must map file roles to paths",
			Code:    "MAP002",
		},
	},
	{
		pattern: "unknown object type",
		msg: UserMessage{
			Message: "Unknown object type",
			Action:  "Use pointset, line_segments, downhole_collection or downhole_intervals",
			Code:    "MAP003",
		},
	},

	// =========================================================================
	// Build Errors
	// =========================================================================
	{
		pattern: "is not a number",
		msg: UserMessage{
			Message: "A numeric column contains a non-numeric value",
			Action:  "Fix the value at the reported line and column",
			Code:    "BLD001",
		},
	},
	{
		pattern: "is not an integer",
		msg: UserMessage{
			Message: "A vertex index is not an integer",
			Action:  "Segment indices must be whole numbers",
			Code:    "BLD002",
		},
	},
	{
		pattern: "duplicate hole",
		msg: UserMessage{
			Message: "A hole identifier appears twice in the collar table",
			Action:  "Each collar row must have a unique hole identifier",
			Code:    "BLD003",
		},
	},
	{
		pattern: "malformed input",
		msg: UserMessage{
			Message: "The input file contains unusable data",
			Action:  "Fix the value at the reported line and column",
			Code:    "BLD004",
		},
	},

	// =========================================================================
	// Storage Errors
	// =========================================================================
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "An object already exists at this path",
			Action:  "Choose a different object_path",
			Code:    "STO001",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "An object already exists at this path",
			Action:  "Choose a different object_path",
			Code:    "STO001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "An object already exists at this path",
			Action:  "Choose a different object_path",
			Code:    "STO001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach object storage",
			Action:  "Please try again in a few moments",
			Code:    "STO002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Object storage connection was interrupted",
			Action:  "Please try again",
			Code:    "STO002",
		},
	},
	{
		pattern: "no object store configured",
		msg: UserMessage{
			Message: "Object storage is disabled on this server",
			Action:  "Set STORE_BACKEND to postgres or sqlite to keep created objects",
			Code:    "STO004",
		},
	},
	{
		pattern: "persistence failure",
		msg: UserMessage{
			Message: "The object could not be saved",
			Action:  "Check storage logs; nothing was created",
			Code:    "STO003",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "too many concurrent builds",
		msg: UserMessage{
			Message: "System is busy processing other builds",
			Action:  "Please wait a moment and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "invalid build request",
		msg: UserMessage{
			Message: "The build request is incomplete",
			Action:  "object_type, name, csv_files and column_mapping are required",
			Code:    "REQ005",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "REQ004",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// The first matching pattern wins; unmatched errors map to ERR000.
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

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
