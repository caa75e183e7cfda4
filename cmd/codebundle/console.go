package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"codebundle/internal/errors"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// console prints user facing output, colored only on a terminal
type console struct {
	w      io.Writer
	green  *color.Color
	red    *color.Color
	yellow *color.Color
	cyan   *color.Color
}

func newConsole(w io.Writer, f *os.File) *console {
	enabled := f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))

	c := &console{
		w:      w,
		green:  color.New(color.FgGreen),
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
	}
	for _, col := range []*color.Color{c.green, c.red, c.yellow, c.cyan} {
		if enabled {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

func (c *console) println(a ...any) {
	fmt.Fprintln(c.w, a...)
}

func (c *console) success(format string, a ...any) {
	c.green.Fprintf(c.w, format+"\n", a...)
}

func (c *console) warn(format string, a ...any) {
	c.yellow.Fprintf(c.w, format+"\n", a...)
}

func (c *console) header(format string, a ...any) {
	c.cyan.Fprintf(c.w, format+"\n", a...)
}

// failure renders err with its kind when it is a typed error
func (c *console) failure(err error) string {
	if e, ok := errors.As(err); ok {
		return c.red.Sprintf("error (%s): %v", strings.ToLower(string(e.Type)), err)
	}
	return c.red.Sprintf("error: %v", err)
}

// diff prints a rendered diff with added and removed lines colored
func (c *console) diff(text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			c.cyan.Fprintln(c.w, line)
		case strings.HasPrefix(line, "+"):
			c.green.Fprintln(c.w, line)
		case strings.HasPrefix(line, "-"):
			c.red.Fprintln(c.w, line)
		default:
			fmt.Fprintln(c.w, line)
		}
	}
}
