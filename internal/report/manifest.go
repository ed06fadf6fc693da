package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
	"github.com/hugo-lorenzo-mato/aos-replay/internal/eventlog"
)

// Output formats accepted by RenderManifest.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Options controls rendering.
type Options struct {
	Format string
	// Color enables ANSI styling. Callers set it when writing to a terminal.
	Color bool
	// Width wraps markdown output; zero means 80 columns.
	Width int
}

// RenderManifest writes a human view of a stored run. schema may be nil for
// stores that do not keep one.
func RenderManifest(w io.Writer, m *core.Manifest, schema *eventlog.Schema, opts Options) error {
	switch opts.Format {
	case "", FormatText:
		_, err := io.WriteString(w, manifestText(m, schema, styler{color: opts.Color}))
		return err
	case FormatMarkdown:
		out, err := renderMarkdown(ManifestMarkdown(m, schema), opts)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	case FormatJSON:
		data, err := eventlog.EncodeManifest(m)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return core.ErrUsage(fmt.Sprintf("unknown format %q (want text, markdown or json)", opts.Format))
	}
}

func manifestText(m *core.Manifest, schema *eventlog.Schema, s styler) string {
	var b strings.Builder

	b.WriteString(s.render(titleStyle, "Run "+m.RunID))
	b.WriteString("\n")

	var fields strings.Builder
	row := func(label, value string) {
		fields.WriteString(s.label(label))
		fields.WriteString(value)
		fields.WriteString("\n")
	}
	row("Manifest version", m.ManifestVersion)
	row("Started", eventlog.FormatTimestamp(m.StartedAtUTC))
	row("Completed", completedText(m))
	row("Seed", fmt.Sprintf("%d (%s, %s)", m.Seed.Value, m.Seed.Algorithm, orDash(m.Seed.Derivation)))
	row("Time source", fmt.Sprintf("%s %s/%s %s", m.TimeSource.Mode, m.TimeSource.Source, m.TimeSource.ClockID, m.TimeSource.Precision))
	if m.TimeSource.Notes != "" {
		row("Notes", m.TimeSource.Notes)
	}
	if schema != nil {
		row("Event log", fmt.Sprintf("%s v%s", schema.Format, schema.SchemaVersion))
	}
	b.WriteString(s.render(boxStyle, strings.TrimRight(fields.String(), "\n")))
	b.WriteString("\n")

	b.WriteString(s.render(sectionStyle, "Models"))
	b.WriteString("\n")
	for _, ref := range m.Models {
		fmt.Fprintf(&b, "  %s  %s  %s\n", ref.ModelID, ref.Provider, ref.Version)
	}
	b.WriteString(s.render(sectionStyle, "Tools"))
	b.WriteString("\n")
	for _, ref := range m.Tools {
		fmt.Fprintf(&b, "  %s  %s\n", ref.ToolID, ref.Version)
	}
	b.WriteString(s.render(sectionStyle, "Policy decisions"))
	b.WriteString("\n")
	for _, d := range m.PolicyDecisions {
		fmt.Fprintf(&b, "  %s  %s  %s\n", d.PolicyID, d.Decision, orDash(d.Reason))
	}
	return b.String()
}

// ManifestMarkdown renders a run as a markdown document.
func ManifestMarkdown(m *core.Manifest, schema *eventlog.Schema) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Run `%s`\n\n", m.RunID)
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Manifest version | %s |\n", m.ManifestVersion)
	fmt.Fprintf(&b, "| Started | %s |\n", eventlog.FormatTimestamp(m.StartedAtUTC))
	fmt.Fprintf(&b, "| Completed | %s |\n", completedText(m))
	fmt.Fprintf(&b, "| Seed | %d |\n", m.Seed.Value)
	fmt.Fprintf(&b, "| Seed algorithm | %s |\n", m.Seed.Algorithm)
	fmt.Fprintf(&b, "| Time source | %s (%s) |\n", m.TimeSource.Source, m.TimeSource.Mode)
	if schema != nil {
		fmt.Fprintf(&b, "| Event log | %s v%s |\n", schema.Format, schema.SchemaVersion)
	}

	b.WriteString("\n## Models\n\n")
	for _, ref := range m.Models {
		fmt.Fprintf(&b, "- `%s` from %s, version %s\n", ref.ModelID, ref.Provider, ref.Version)
	}
	b.WriteString("\n## Tools\n\n")
	for _, ref := range m.Tools {
		fmt.Fprintf(&b, "- `%s` version %s\n", ref.ToolID, ref.Version)
	}
	b.WriteString("\n## Policy decisions\n\n")
	for _, d := range m.PolicyDecisions {
		if d.Reason != "" {
			fmt.Fprintf(&b, "- `%s`: **%s** (%s)\n", d.PolicyID, d.Decision, d.Reason)
		} else {
			fmt.Fprintf(&b, "- `%s`: **%s**\n", d.PolicyID, d.Decision)
		}
	}
	return b.String()
}

func renderMarkdown(md string, opts Options) (string, error) {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	style := styles.ASCIIStyleConfig
	if opts.Color {
		style = styles.DarkStyleConfig
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	return renderer.Render(md)
}

func completedText(m *core.Manifest) string {
	if m.CompletedAtUTC == nil {
		return "-"
	}
	return eventlog.FormatTimestamp(*m.CompletedAtUTC)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
