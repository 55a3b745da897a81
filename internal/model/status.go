package model

// Status classifies the outcome of an artifact pipeline.
type Status int

const (
	// StatusOK means every step succeeded and every sibling was verified.
	StatusOK Status = iota

	// StatusWarning means the artifact shipped but something needs a look,
	// typically a loader patch whose search text was not found.
	StatusWarning

	// StatusFailed means the pipeline stopped; the artifact was not shipped.
	StatusFailed
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusWarning:
		return "WARNING"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Symbol returns a short marker for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusOK:
		return "✓"
	case StatusWarning:
		return "!"
	case StatusFailed:
		return "✗"
	default:
		return "?"
	}
}
