package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/icco/basstrainer/internal/pattern"
)

const cellWidth = 3

// renderTab draws notes as bass tablature, G string on top, with beat
// numbers above and the note at current highlighted.
func renderTab(notes []pattern.Note, current, subdiv, beatsPerMeasure int) string {
	if subdiv < 1 {
		subdiv = 1
	}
	if beatsPerMeasure < 1 {
		beatsPerMeasure = 4
	}
	measure := subdiv * beatsPerMeasure

	var b strings.Builder

	b.WriteString("   ")
	for i := range notes {
		cell := strings.Repeat(" ", cellWidth)
		if i%subdiv == 0 {
			cell = fmt.Sprintf("%-*d", cellWidth, (i/subdiv)%beatsPerMeasure+1)
		}
		b.WriteString(labelStyle.Render(cell))
		if (i+1)%measure == 0 {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")

	for s := pattern.String(pattern.NumStrings - 1); s >= 0; s-- {
		b.WriteString(stringStyle.Render(s.String()) + " |")
		for i, n := range notes {
			cell := strings.Repeat("-", cellWidth)
			style := lineStyle
			if n.String == s {
				fret := strconv.Itoa(n.Fret)
				cell = fret + strings.Repeat("-", cellWidth-len(fret))
				style = fretStyle
			}
			if i == current {
				style = currentStyle
			}
			b.WriteString(style.Render(cell))
			if (i+1)%measure == 0 {
				b.WriteString("|")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
