package display

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

const (
	// Default terminal dimensions if detection fails
	DefaultTerminalWidth  = 80
	DefaultTerminalHeight = 24
)

// GetTerminalSize returns the width and height of the terminal
func GetTerminalSize() (width, height int) {
	if f, err := os.Open("/dev/tty"); err == nil {
		defer f.Close()

		width, height, err := term.GetSize(int(f.Fd()))
		if err == nil {
			return width, height
		}
	}

	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err == nil {
		return width, height
	}

	// Fall back to environment variables
	if cols := os.Getenv("COLUMNS"); cols != "" {
		var width int
		if _, err := fmt.Sscanf(cols, "%d", &width); err == nil && width > 0 {
			height := DefaultTerminalHeight
			if rows := os.Getenv("LINES"); rows != "" {
				var h int
				if _, err := fmt.Sscanf(rows, "%d", &h); err == nil && h > 0 {
					height = h
				}
			}
			return width, height
		}
	}

	return DefaultTerminalWidth, DefaultTerminalHeight
}

// IsTerminal reports whether stdout is attached to a terminal. Progress
// spinners are suppressed when output is piped.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// ClearLine erases the current line so a progress line can be redrawn.
func ClearLine() {
	fmt.Print("\r\033[K")
}

// CreateSpinner returns a text-based spinner with the given frames
func CreateSpinner(frames []string) func() string {
	if len(frames) == 0 {
		frames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	}

	idx := 0
	return func() string {
		frame := frames[idx]
		idx = (idx + 1) % len(frames)
		return frame
	}
}
