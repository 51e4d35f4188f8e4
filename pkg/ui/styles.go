package ui

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Canvas units covered by one terminal cell. Cells are roughly twice as tall
// as they are wide.
const (
	CellWidth  = 10.0
	CellHeight = 20.0
)

// Layout tokens, in terminal cells.
const (
	HeaderRows       = 1
	FooterRows       = 1
	DetailPaneWidth  = 44
	MinDetailPane    = 28
	MinCanvasWidth   = 30
	DetailWrapMargin = 4
)

// Box-drawing runes for node boxes.
const (
	boxH        = '─'
	boxV        = '│'
	boxTL       = '╭'
	boxTR       = '╮'
	boxBL       = '╰'
	boxBR       = '╯'
	boxHSel     = '━'
	boxVSel     = '┃'
	boxTLSel    = '┏'
	boxTRSel    = '┓'
	boxBLSel    = '┗'
	boxBRSel    = '┛'
	edgeRune    = '·'
	edgeRune3D  = '∙'
	checkedMark = "✓"
)

// RenderTypeBadge returns "[◆ phase]" style text for a node type.
func (t Theme) RenderTypeBadge(typ model.NodeType, completed bool) string {
	return t.NodeStyle(typ, completed).Render(fmt.Sprintf("[%s %s]", typ.Icon(), typ))
}

// RenderProgressBar draws a fixed-width bar for percent in [0,100].
func (t Theme) RenderProgressBar(percent, width int) string {
	if width <= 0 {
		return ""
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return t.StatusOK.Render(strings.Repeat("█", filled)) +
		t.MutedText.Render(strings.Repeat("░", width-filled))
}
