package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// detailCache holds the last rendered detail panel so unchanged frames skip
// glamour.
type detailCache struct {
	key      string
	out      string
	width    int
	renderer *glamour.TermRenderer
}

func (d *detailCache) invalidate() { d.key = "" }

// render returns the markdown for n rendered at width.
func (d *detailCache) render(n model.Node, width int) string {
	key := fmt.Sprintf("%s|%v|%s|%d", n.ID, n.Completed, n.Notes, width)
	if key == d.key {
		return d.out
	}
	md := nodeMarkdown(n)
	if d.renderer == nil || d.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(width, 10)),
		)
		if err == nil {
			d.renderer, d.width = r, width
		}
	}
	out := md
	if d.renderer != nil {
		if rendered, err := d.renderer.Render(md); err == nil {
			out = strings.TrimRight(rendered, "\n ")
		}
	}
	d.key, d.out = key, out
	return out
}

// nodeMarkdown formats a node for the detail panel.
func nodeMarkdown(n model.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s %s\n\n", n.Type.Icon(), n.Title)

	status := "not started"
	if n.Completed {
		status = "**completed** ✓"
	}
	fmt.Fprintf(&sb, "*%s* · %s\n\n", n.Type, status)

	var facts []string
	if n.Duration != "" {
		facts = append(facts, "Duration: "+n.Duration)
	}
	if n.Difficulty != "" {
		facts = append(facts, "Difficulty: "+n.Difficulty)
	}
	if len(facts) > 0 {
		sb.WriteString(strings.Join(facts, " · "))
		sb.WriteString("\n\n")
	}

	if n.Description != "" {
		sb.WriteString(n.Description)
		sb.WriteString("\n\n")
	}
	if len(n.Skills) > 0 {
		sb.WriteString("### Skills\n\n")
		for _, s := range n.Skills {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
		sb.WriteString("\n")
	}
	if len(n.Resources) > 0 {
		sb.WriteString("### Resources\n\n")
		for _, r := range n.Resources {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
		sb.WriteString("\n")
	}
	if strings.TrimSpace(n.Notes) != "" {
		sb.WriteString("### Notes\n\n")
		sb.WriteString(n.Notes)
		sb.WriteString("\n")
	}
	return sb.String()
}
