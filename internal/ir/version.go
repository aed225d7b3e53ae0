package ir

// Version constants reported by the CLI and the HTTP health endpoint.
const (
	// FormatVersion is the query document format version.
	FormatVersion = "1"

	// Version is the jsonquery release version.
	Version = "0.1.0"
)
