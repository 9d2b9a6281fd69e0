package util

import "fmt"

// DefaultLogMaxLen caps diagnostic payloads quoted in log lines and
// error messages at 1KB.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for diagnostics. Upstream error
// bodies can run to hundreds of KB of HTML; quoting more than a prefix
// helps nobody.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes applies TruncateLog to a byte slice with the default
// limit.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
