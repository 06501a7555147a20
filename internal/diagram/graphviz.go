package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// ImageFormat is an output format of RenderImage.
type ImageFormat string

const (
	ImagePNG ImageFormat = "png"
	ImageSVG ImageFormat = "svg"
)

// RenderImage renders a DiagramModel with graphviz. Grid columns become
// clusters laid out left to right.
func RenderImage(ctx context.Context, model *DiagramModel, format ImageFormat) ([]byte, error) {
	var gvFormat graphviz.Format
	switch format {
	case ImagePNG, "":
		gvFormat = graphviz.PNG
	case ImageSVG:
		gvFormat = graphviz.SVG
	default:
		return nil, fmt.Errorf("diagram: unsupported image format %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.LRRank)
	if model.Title != "" {
		graph.SetLabel(model.Title)
	}

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	addCluster := func(name, label string, ids []string) error {
		sub, err := graph.CreateSubGraphByName(name)
		if err != nil {
			return fmt.Errorf("diagram: create cluster %s: %w", name, err)
		}
		sub.SetLabel(label)
		sub.SetStyle(cgraph.DashedGraphStyle)
		for _, id := range ids {
			n := model.node(id)
			if n == nil {
				continue
			}
			gvNode, err := sub.CreateNodeByName(n.ID)
			if err != nil {
				return fmt.Errorf("diagram: create node %s: %w", n.ID, err)
			}
			gvNode.SetLabel(firstLine(n.Label))
			applyNodeStyle(gvNode, n)
			gvNodes[n.ID] = gvNode
		}
		return nil
	}

	for col, ids := range model.Columns {
		if err := addCluster(fmt.Sprintf("cluster_col%d", col), fmt.Sprintf("column %d", col), ids); err != nil {
			return nil, err
		}
	}
	if len(model.Staged) > 0 {
		if err := addCluster("cluster_staged", "off-graph", model.Staged); err != nil {
			return nil, err
		}
	}

	for _, edge := range model.Edges {
		from, to := gvNodes[edge.From], gvNodes[edge.To]
		if from == nil || to == nil {
			continue
		}
		e, err := graph.CreateEdgeByName("", from, to)
		if err == nil && edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, gvFormat, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz attributes from node kind and overlay.
func applyNodeStyle(gvNode *cgraph.Node, n *Node) {
	switch n.Kind {
	case NodeKindStart:
		gvNode.SetShape(cgraph.EllipseShape)
	case NodeKindEnd:
		gvNode.SetShape(cgraph.DoubleCircleShape)
	case NodeKindFailed:
		gvNode.SetShape(cgraph.CircleShape)
	default:
		gvNode.SetShape(cgraph.BoxShape)
	}

	if n.Staged {
		gvNode.SetStyle(cgraph.DashedNodeStyle)
		return
	}
	if n.Status == nil {
		return
	}
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch n.Status.Status {
	case "completed":
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case "running":
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	default:
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	}
}
