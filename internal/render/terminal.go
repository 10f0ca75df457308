package render

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pvzzle/posledger/internal/storage"

	"github.com/fatih/color"
)

// TerminalView redraws the whole list on every render.
type TerminalView struct {
	mu  sync.Mutex
	out io.Writer
	loc *time.Location

	header *color.Color
	errc   *color.Color
}

func NewTerminalView(out io.Writer, loc *time.Location) *TerminalView {
	return &TerminalView{
		out:    out,
		loc:    loc,
		header: color.New(color.FgCyan, color.Bold),
		errc:   color.New(color.FgRed),
	}
}

func (v *TerminalView) Render(items []storage.PaymentRequest) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.header.Fprintf(v.out, "Transactions (%d)\n", len(items))
	fmt.Fprint(v.out, FormatList(items, v.loc))
	fmt.Fprintln(v.out)
}

func (v *TerminalView) RenderError(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.errc.Fprintln(v.out, ErrorText)
}

// Notice prints a one-off message such as a creation result.
func (v *TerminalView) Notice(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	color.New(color.FgGreen).Fprintln(v.out, msg)
}

func (v *TerminalView) Warn(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.errc.Fprintln(v.out, msg)
}
