package diagram

import (
	"fmt"
	"strings"
)

// RenderMermaid renders a DiagramModel as a left-to-right Mermaid flowchart
// with one subgraph per grid column and one for staged nodes.
func RenderMermaid(model *DiagramModel) string {
	var b strings.Builder

	b.WriteString("graph LR\n")
	if model.Title != "" {
		fmt.Fprintf(&b, "    %%%% %s\n", model.Title)
	}
	if model.Status != "" {
		fmt.Fprintf(&b, "    %%%% status: %s\n", model.Status)
	}
	for _, issue := range model.Issues {
		fmt.Fprintf(&b, "    %%%% %s\n", firstLine(issue))
	}

	for col, ids := range model.Columns {
		fmt.Fprintf(&b, "    subgraph col%d[\"column %d\"]\n", col, col)
		b.WriteString("        direction TB\n")
		for _, id := range ids {
			if n := model.node(id); n != nil {
				fmt.Fprintf(&b, "        %s\n", mermaidNodeDef(n))
			}
		}
		b.WriteString("    end\n")
	}
	if len(model.Staged) > 0 {
		b.WriteString("    subgraph staged[\"off-graph\"]\n")
		for _, id := range model.Staged {
			if n := model.node(id); n != nil {
				fmt.Fprintf(&b, "        %s\n", mermaidNodeDef(n))
			}
		}
		b.WriteString("    end\n")
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%q|", mermaidEscapeLabel(edge.Label))
		}
		fmt.Fprintf(&b, "    %s -->%s %s\n", mermaidSafeID(edge.From), label, mermaidSafeID(edge.To))
	}

	b.WriteString("\n")
	b.WriteString("    classDef completed fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef running fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef pending fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")
	b.WriteString("    classDef staged fill:#4a4a4a,stroke:#333,color:#aaa,stroke-dasharray:5 5\n")

	for _, n := range model.Nodes {
		if cls := mermaidClass(n); cls != "" {
			fmt.Fprintf(&b, "    class %s %s\n", mermaidSafeID(n.ID), cls)
		}
	}

	return b.String()
}

// mermaidNodeDef returns a node definition shaped by kind.
func mermaidNodeDef(n *Node) string {
	id := mermaidSafeID(n.ID)
	label := mermaidEscapeLabel(firstLine(n.Label))
	if n.Kind == NodeKindList {
		label = fmt.Sprintf("%s (%d)", label, len(n.Items))
	}

	switch n.Kind {
	case NodeKindStart:
		return fmt.Sprintf("%s([\"%s\"])", id, label)
	case NodeKindEnd:
		return fmt.Sprintf("%s(((\"%s\")))", id, label)
	case NodeKindFailed:
		return fmt.Sprintf("%s((\"%s\"))", id, label)
	default:
		return fmt.Sprintf("%s[\"%s\"]", id, label)
	}
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_", "\"", "_")
	return "n_" + r.Replace(id)
}

// mermaidEscapeLabel replaces characters that end a quoted Mermaid label.
func mermaidEscapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

func mermaidClass(n *Node) string {
	if n.Staged {
		return "staged"
	}
	if n.Status == nil {
		return ""
	}
	switch n.Status.Status {
	case "completed", "running", "pending":
		return n.Status.Status
	default:
		return ""
	}
}
