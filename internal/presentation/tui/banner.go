package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the OpenAGI banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	lines := []struct {
		text  string
		color string
	}{
		{"   ___                      _   ___ ___ ", "#818cf8"},
		{"  / _ \\ _ __  ___ _ _      /_\\ / __|_ _|", "#a78bfa"},
		{" | (_) | '_ \\/ -_) ' \\    / _ \\ (_ || | ", "#c084fc"},
		{"  \\___/| .__/\\___|_||_|  /_/ \\_\\___|___|", "#e879f9"},
		{"       |_|                              ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Status colors a one-line status message: green when ok, red otherwise.
func Status(w io.Writer, ok bool, msg string) {
	out := termenv.NewOutput(w)
	color := "#22c55e"
	if !ok {
		color = "#ef4444"
	}
	fmt.Fprintln(w, out.String(msg).Foreground(out.Color(color)))
}
