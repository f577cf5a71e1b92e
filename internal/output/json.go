// Package output holds the shared presentation helpers used by the commands:
// the --json envelope, the pager, and aligned tables.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/klytics/sheetlens/cmd/version"
	"github.com/klytics/sheetlens/internal/export"
)

// Exit codes for consistent error reporting.
const (
	ExitOK          = 0 // success
	ExitUserError   = 1 // bad flags, missing workbook, invalid config
	ExitSystemError = 2 // unreadable workbook, IO error
)

// ExitCode maps a command error to a process exit code. Failures while
// reading or writing workbooks are system errors; everything else is
// treated as a usage problem.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exportErr *export.Error
	var pathErr *fs.PathError
	if errors.As(err, &exportErr) || errors.As(err, &pathErr) {
		return ExitSystemError
	}
	return ExitUserError
}

// JSONResult is the envelope every command prints under --json.
type JSONResult struct {
	OK      bool        `json:"ok"`
	Command string      `json:"command"`
	Version string      `json:"version"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    int         `json:"code,omitempty"`
}

// PrintJSON writes a success envelope around data.
func PrintJSON(w io.Writer, cmd string, data interface{}) error {
	return encode(w, JSONResult{
		OK:      true,
		Command: cmd,
		Version: version.Version,
		Data:    data,
	})
}

// PrintJSONError writes a failure envelope for err.
func PrintJSONError(w io.Writer, cmd string, err error, code int) error {
	if encErr := encode(w, JSONResult{
		Command: cmd,
		Version: version.Version,
		Error:   err.Error(),
		Code:    code,
	}); encErr != nil {
		return fmt.Errorf("could not encode JSON error: %w", encErr)
	}
	return nil
}

func encode(w io.Writer, result JSONResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
