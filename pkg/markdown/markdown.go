// Package markdown renders model output for the terminal.
package markdown

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

const wrapWidth = 100

// Render pretty-prints markdown to w, wrapping long lines. When rendering
// fails the raw text is printed instead so the answer is never lost.
func Render(w io.Writer, content string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)

	if err == nil {
		if md, err := r.Render(content); err == nil {
			fmt.Fprintln(w, md)
			return
		}
	}

	fmt.Fprintln(w, content)
}
