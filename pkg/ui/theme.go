package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and ANSI white
// for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Node types
	Phase     lipgloss.AdaptiveColor
	Milestone lipgloss.AdaptiveColor
	Skill     lipgloss.AdaptiveColor
	Work      lipgloss.AdaptiveColor // project, internship
	Credit    lipgloss.AdaptiveColor // course, certification
	Done      lipgloss.AdaptiveColor

	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Header   lipgloss.Style
	Panel    lipgloss.Style
	Edge     lipgloss.Style
	EdgeDim  lipgloss.Style
	Selected lipgloss.Style

	// Node border styles, precomputed per type so the canvas does not
	// allocate styles per cell.
	NodeStyles map[model.NodeType]lipgloss.Style
	DoneNode   lipgloss.Style

	MutedText   lipgloss.Style
	PrimaryBold lipgloss.Style
	StatusOK    lipgloss.Style
	StatusError lipgloss.Style
	DemoBadge   lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Phase:     lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Milestone: lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Skill:     lipgloss.AdaptiveColor{Light: "#808000", Dark: "#F1FA8C"},
		Work:      lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Credit:    lipgloss.AdaptiveColor{Light: "#B0306A", Dark: "#FF79C6"},
		Done:      lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	t.Edge = r.NewStyle().Foreground(t.Secondary)
	t.EdgeDim = r.NewStyle().Foreground(t.Border)
	t.Selected = r.NewStyle().Foreground(t.Primary).Bold(true)

	t.NodeStyles = map[model.NodeType]lipgloss.Style{
		model.TypePhase:         r.NewStyle().Foreground(t.Phase).Bold(true),
		model.TypeMilestone:     r.NewStyle().Foreground(t.Milestone),
		model.TypeSkill:         r.NewStyle().Foreground(t.Skill),
		model.TypeProject:       r.NewStyle().Foreground(t.Work),
		model.TypeInternship:    r.NewStyle().Foreground(t.Work),
		model.TypeCourse:        r.NewStyle().Foreground(t.Credit),
		model.TypeCertification: r.NewStyle().Foreground(t.Credit),
	}
	t.DoneNode = r.NewStyle().Foreground(t.Done)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.StatusOK = r.NewStyle().Foreground(t.Done)
	t.StatusError = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}).Bold(true)
	t.DemoBadge = r.NewStyle().
		Background(ThemeBg("#FFB86C")).
		Foreground(ThemeFg("#282A36")).
		Bold(true).
		Padding(0, 1)

	return t
}

// NodeStyle returns the style for a node box.
func (t Theme) NodeStyle(typ model.NodeType, completed bool) lipgloss.Style {
	if completed {
		return t.DoneNode
	}
	if s, ok := t.NodeStyles[typ]; ok {
		return s
	}
	return t.Base
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
