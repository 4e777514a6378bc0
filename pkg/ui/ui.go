// Package ui renders metaini's human-facing output: error lines, command
// tables and markdown help. Terminal output is styled; text output is
// plain so it can be piped.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pterm/pterm"

	"github.com/arthur-debert/metaini/pkg/ui/styles"
)

// Renderer writes styled or plain output to w.
type Renderer struct {
	w    io.Writer
	rich bool
}

// NewRenderer creates a renderer for format. FormatAuto inspects w when
// it is a file and falls back to text otherwise.
func NewRenderer(format Format, w io.Writer) *Renderer {
	if format == FormatAuto {
		format = FormatText
		if f, ok := w.(*os.File); ok {
			format = DetectFormat(f)
		}
	}
	return &Renderer{w: w, rich: format == FormatTerminal}
}

// Rich reports whether the renderer styles its output.
func (r *Renderer) Rich() bool {
	return r.rich
}

func (r *Renderer) style(name, text string) string {
	if !r.rich {
		return text
	}
	return styles.Render(name, text)
}

// Error writes "Error: <msg>".
func (r *Renderer) Error(msg string) {
	fmt.Fprintln(r.w, r.style("Error", "Error: "+msg))
}

// Message writes msg in the named style.
func (r *Renderer) Message(style, msg string) {
	fmt.Fprintln(r.w, r.style(style, msg))
}

// Table writes rows under header. Terminal output uses a boxed table,
// text output one tab-separated line per row.
func (r *Renderer) Table(header []string, rows [][]string) error {
	if !r.rich {
		fmt.Fprintln(r.w, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(r.w, strings.Join(row, "\t"))
		}
		return nil
	}

	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(r.w, out)
	return nil
}

// Markdown writes content rendered by glamour, or as is for text output.
func (r *Renderer) Markdown(content string) error {
	if !r.rich {
		_, err := io.WriteString(r.w, content)
		return err
	}

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return err
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.w, rendered)
	return err
}
