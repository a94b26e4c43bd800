package driver

import "strings"

// FormatError renders an error the way the Sedna client library reports it
// through LastError:
//
//	SEDNA Message: ERROR <code>
//	<message>
//	Details: <details>
//
// The Details line is omitted when details is empty.
func FormatError(code, message, details string) string {
	var sb strings.Builder
	sb.WriteString("SEDNA Message: ERROR ")
	sb.WriteString(code)
	sb.WriteString("\n")
	sb.WriteString(message)
	sb.WriteString("\n")
	if details != "" {
		sb.WriteString("Details: ")
		sb.WriteString(details)
		sb.WriteString("\n")
	}
	return sb.String()
}
