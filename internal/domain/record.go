package domain

import (
	"fmt"
	"strings"
)

// Priority is the severity level of a record, ordered from least to most severe.
type Priority int

const (
	PriorityUnknown Priority = iota
	PriorityVerbose
	PriorityDebug
	PriorityInfo
	PriorityWarn
	PriorityError
	PriorityFatal
	PriorityAssert
)

// ParsePriority maps a single-letter priority (V, D, I, W, E, F, A) to a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "V", "VERBOSE":
		return PriorityVerbose, nil
	case "D", "DEBUG":
		return PriorityDebug, nil
	case "I", "INFO":
		return PriorityInfo, nil
	case "W", "WARN":
		return PriorityWarn, nil
	case "E", "ERROR":
		return PriorityError, nil
	case "F", "FATAL":
		return PriorityFatal, nil
	case "A", "ASSERT":
		return PriorityAssert, nil
	default:
		return PriorityUnknown, fmt.Errorf("unknown priority %q", s)
	}
}

// Letter returns the single-letter form used in the header line.
func (p Priority) Letter() string {
	switch p {
	case PriorityVerbose:
		return "V"
	case PriorityDebug:
		return "D"
	case PriorityInfo:
		return "I"
	case PriorityWarn:
		return "W"
	case PriorityError:
		return "E"
	case PriorityFatal:
		return "F"
	case PriorityAssert:
		return "A"
	default:
		return "?"
	}
}

// String returns a human-readable representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityVerbose:
		return "Verbose"
	case PriorityDebug:
		return "Debug"
	case PriorityInfo:
		return "Info"
	case PriorityWarn:
		return "Warn"
	case PriorityError:
		return "Error"
	case PriorityFatal:
		return "Fatal"
	case PriorityAssert:
		return "Assert"
	default:
		return "Unknown"
	}
}

// Record represents a single captured log entry.
// A record is created once by the parser and never mutated afterwards.
type Record struct {
	// Date is the raw date field of the header (e.g., "01-15" or "2024-01-15")
	Date string

	// Time is the raw time field of the header (e.g., "10:30:45.123")
	Time string

	// UID is the optional user id column; empty when the header omits it
	UID string

	// PID is the id of the originating process
	PID int

	// TID is the id of the originating thread
	TID int

	// Priority is the severity of the record
	Priority Priority

	// Tag is the log tag
	Tag string

	// ProcessName is the name of the originating process, when it could be resolved
	ProcessName string

	// Message is the body; multiple lines are joined with "\n"
	Message string
}

// Header renders the header line in long format.
func (r Record) Header() string {
	var b strings.Builder
	b.WriteString("[ ")
	b.WriteString(r.Date)
	b.WriteByte(' ')
	b.WriteString(r.Time)
	b.WriteByte(' ')
	if r.UID != "" {
		fmt.Fprintf(&b, "%5s:", r.UID)
	}
	fmt.Fprintf(&b, "%5d:%5d %s/%s ]", r.PID, r.TID, r.Priority.Letter(), r.Tag)
	return b.String()
}

// String returns the canonical form: header, message, then a blank line.
// Concatenated canonical forms parse back into the same records.
func (r Record) String() string {
	return r.Header() + "\n" + r.Message + "\n\n"
}
