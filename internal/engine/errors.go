package engine

import "fmt"

// ConfigError reports an invalid run configuration. It is raised before any
// data access and names the violated constraint.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid run configuration: %s: %s", e.Field, e.Reason)
}

// DataGapError marks a ticker whose series cannot produce a single defined
// SMA pair within the requested range. The ticker is excluded from the
// simulation; the run continues for the rest.
type DataGapError struct {
	Ticker     string
	Bars       int
	LongWindow int
}

func (e *DataGapError) Error() string {
	if e.Bars == 0 {
		return fmt.Sprintf("%s: no bars in range", e.Ticker)
	}
	return fmt.Sprintf("%s: %d bars cannot fill a %d-bar window", e.Ticker, e.Bars, e.LongWindow)
}

// RepositoryError wraps a store failure for one ticker. Fatal for that
// ticker only.
type RepositoryError struct {
	Ticker string
	Op     string // "read" or "write"
	Err    error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Ticker, e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }
