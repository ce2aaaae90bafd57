package names

import (
	"errors"
	"fmt"
)

var (
	// ErrSheetNotFound indicates a sheet name that is not in the workbook.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrInvalidRule indicates an unknown or missing qualification rule.
	ErrInvalidRule = errors.New("invalid qualification rule")
)

// ConfigError is a configuration problem that aborts one operation. Field
// names the offending input ("range", "columns", "sheet", "rule").
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}
