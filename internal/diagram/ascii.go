package diagram

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// statusTag returns a short ASCII indicator for an overlay status.
func statusTag(s *StatusOverlay) string {
	if s == nil {
		return ""
	}
	switch s.Status {
	case "completed":
		return "[OK]"
	case "running":
		return fmt.Sprintf("[RUN %d/%d]", s.Completed, s.Total)
	case "pending":
		if s.Completed > 0 {
			return fmt.Sprintf("[%d/%d]", s.Completed, s.Total)
		}
		return "[PEND]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as text: one row of boxes per grid
// column, staged nodes and issues listed underneath.
func RenderASCII(model *DiagramModel) string {
	var b strings.Builder

	if model.Title != "" {
		fmt.Fprintf(&b, "=== %s ===\n", model.Title)
	}
	if model.Status != "" {
		fmt.Fprintf(&b, "status: %s\n", model.Status)
	}
	b.WriteByte('\n')

	for col, ids := range model.Columns {
		var boxes []asciiBox
		for _, id := range ids {
			if n := model.node(id); n != nil {
				boxes = append(boxes, makeBox(n))
			}
		}
		renderBoxRow(&b, boxes)
		if col < len(model.Columns)-1 {
			renderConnector(&b)
		}
	}

	if len(model.Staged) > 0 {
		b.WriteString("\n--- off-graph ---\n")
		for _, id := range model.Staged {
			if n := model.node(id); n != nil {
				fmt.Fprintf(&b, "  %s (%s)\n", firstLine(n.Label), n.ID)
			}
		}
	}

	var edges []string
	for _, e := range model.Edges {
		if e.Label != "" {
			edges = append(edges, fmt.Sprintf("  %s ─→ %s  if %s\n", e.From, e.To, e.Label))
		}
	}
	if len(edges) > 0 {
		b.WriteString("\n--- conditions ---\n")
		b.WriteString(strings.Join(edges, ""))
	}

	if len(model.Issues) > 0 {
		b.WriteString("\n--- issues ---\n")
		for _, issue := range model.Issues {
			fmt.Fprintf(&b, "  ! %s\n", issue)
		}
	}

	return b.String()
}

type asciiBox struct {
	lines []string
	width int
}

func makeBox(n *Node) asciiBox {
	content := []string{firstLine(n.Label)}
	for _, item := range n.Items {
		content = append(content, "- "+firstLine(item))
	}
	if tag := statusTag(n.Status); tag != "" {
		content = append(content, tag)
	}

	maxLen := 0
	for _, line := range content {
		maxLen = max(maxLen, utf8.RuneCountInString(line))
	}
	width := maxLen + 4

	lines := []string{"┌" + strings.Repeat("─", width-2) + "┐"}
	for _, line := range content {
		pad := strings.Repeat(" ", maxLen-utf8.RuneCountInString(line))
		lines = append(lines, "│ "+line+pad+" │")
	}
	lines = append(lines, "└"+strings.Repeat("─", width-2)+"┘")
	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side, top aligned.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	height := 0
	for _, box := range boxes {
		height = max(height, len(box.lines))
	}
	for row := 0; row < height; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ")
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

func renderConnector(b *strings.Builder) {
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}
