package tui

import (
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/charmbracelet/glamour"
)

const defaultWrap = 100

// NewRenderer renders run reports as terminal markdown wrapped at width
// columns (defaultWrap when width <= 0). Rendering failures degrade to the
// plain report.
func NewRenderer(width int) runner.ContentRenderer {
	if width <= 0 {
		width = defaultWrap
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return plain
	}
	return func(md string) (string, error) {
		out, err := r.Render(md)
		if err != nil {
			return md, nil
		}
		return out, nil
	}
}

func plain(md string) (string, error) { return md, nil }
