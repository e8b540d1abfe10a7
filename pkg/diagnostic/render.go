package diagnostic

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/muesli/termenv"
)

type renderConfig struct {
	profile termenv.Profile
	forced  bool
	summary bool
	fatal   []Kind
}

// RenderOption configures Render.
type RenderOption func(*renderConfig)

// WithProfile forces a colour profile instead of detecting it from the writer.
func WithProfile(p termenv.Profile) RenderOption {
	return func(c *renderConfig) {
		c.profile = p
		c.forced = true
	}
}

// WithoutSummary omits the trailing "N error(s), M warning(s)" line.
func WithoutSummary() RenderOption {
	return func(c *renderConfig) {
		c.summary = false
	}
}

// WithFatal sets which kinds are shown and counted as errors. Pass the same kinds
// given to the collector's WithFatalKinds so the output agrees with the gate.
// Runtime fault and stuck records are always shown as errors.
func WithFatal(kinds ...Kind) RenderOption {
	return func(c *renderConfig) {
		c.fatal = slices.Clone(kinds)
	}
}

// Render writes errs in display order, one per line, followed by a summary.
// The input slice is not modified.
func Render(w io.Writer, errs []Error, opts ...RenderOption) error {
	cfg := renderConfig{summary: true, fatal: DefaultFatalKinds}
	for _, opt := range opts {
		opt(&cfg)
	}

	var out *termenv.Output
	if cfg.forced {
		out = termenv.NewOutput(w, termenv.WithProfile(cfg.profile))
	} else {
		out = termenv.NewOutput(w)
	}

	sorted := slices.Clone(errs)
	Sort(sorted)

	fatal, warnings := 0, 0
	for _, e := range sorted {
		label := strings.ToUpper(string(e.Kind))
		style := out.String(label)
		switch {
		case e.Kind.In(cfg.fatal) || e.Kind == KindFault || e.Kind == KindStuck:
			fatal++
			style = style.Foreground(out.Color("1")).Bold()
		case strings.EqualFold(string(e.Kind), string(KindWarning)):
			warnings++
			style = style.Foreground(out.Color("3"))
		default:
			style = style.Foreground(out.Color("6"))
		}
		if _, err := fmt.Fprintf(w, "%s (%s): %s\n", style, e.Span, e.Message); err != nil {
			return err
		}
	}

	if !cfg.summary {
		return nil
	}
	_, err := fmt.Fprintf(w, "%s, %s\n", plural(fatal, "error"), plural(warnings, "warning"))
	return err
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
