package decomp

import "fmt"

// ConfigurationError reports an invalid construction input, such as a
// dimension key missing from the reduced space or the loadings table.
// It is fatal to the view being constructed.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "decomp: " + e.Msg
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// MissingDataError reports that a renderer's required optional input
// is absent. The caller can recover by re-rendering with the data
// supplied.
type MissingDataError struct {
	What string
}

func (e *MissingDataError) Error() string {
	return "decomp: missing data: " + e.What
}
