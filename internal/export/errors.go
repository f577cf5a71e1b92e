package export

import (
	"errors"
	"fmt"
)

// ErrUnreadable indicates the source workbook could not be opened or parsed.
var ErrUnreadable = errors.New("unreadable workbook")

// ErrUnknownFormat indicates an output format name that is not recognised.
var ErrUnknownFormat = errors.New("unknown output format")

// Stage names the step of an export that failed.
type Stage string

const (
	StageRead   Stage = "read"
	StageRender Stage = "render"
	StageWrite  Stage = "write"
)

// Error carries the diagnostic context of a failed export.
type Error struct {
	Path  string
	Sheet string
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("export %s failed at %s (sheet %q): %v", e.Path, e.Stage, e.Sheet, e.Err)
	}
	return fmt.Sprintf("export %s failed at %s: %v", e.Path, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
