package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct{ text, color string }{
	{"  _ _           _               _   ", "#34d399"},
	{" | (_)_   _____| |__   ___  ___| |_ ", "#2dd4bf"},
	{" | | \\ \\ / / _ \\ '_ \\ / _ \\/ __| __|", "#22d3ee"},
	{" | | |\\ V /  __/ | | | (_) \\__ \\ |_ ", "#38bdf8"},
	{" |_|_| \\_/ \\___|_| |_|\\___/|___/\\__|", "#60a5fa"},
}

// PrintBanner writes the livehost banner and version to w. Colour is only used
// when w is a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w, termenv.WithProfile(Profile(w)))

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
