package output

import (
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-isatty"
)

// DefaultPageHeight is used when the terminal height is unknown.
const DefaultPageHeight = 40

// ShouldPage reports whether content is taller than termHeight and
// stdout is a terminal.
func ShouldPage(content string, termHeight int) bool {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return false
	}
	if termHeight <= 0 {
		termHeight = DefaultPageHeight
	}
	return strings.Count(content, "\n") > termHeight
}

// Page pipes content through $PAGER, or "less -S" so wide grids scroll
// horizontally instead of wrapping.
func Page(content string) error {
	args := []string{"less", "-S"}
	if pager := strings.Fields(os.Getenv("PAGER")); len(pager) > 0 {
		args = pager
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(content)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
