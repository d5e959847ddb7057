package layout

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/scribetree/pkg/errors"
)

// pointsPerInch converts Graphviz inches to layout units.
const pointsPerInch = 72

// Direction is the rank direction of an arranged layout.
type Direction string

// Rank directions understood by Graphviz.
const (
	TopToBottom Direction = "TB"
	BottomToTop Direction = "BT"
	LeftToRight Direction = "LR"
	RightToLeft Direction = "RL"
)

// ParseDirection validates a rank direction. The empty string means
// [TopToBottom]; matching is case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(s))); d {
	case "":
		return TopToBottom, nil
	case TopToBottom, BottomToTop, LeftToRight, RightToLeft:
		return d, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidDirection, "unknown direction %q (want TB, BT, LR or RL)", s)
	}
}

// ArrangeOptions configures [Arrange].
type ArrangeOptions struct {
	Direction Direction
	// RankSep and NodeSep are Graphviz separations in inches.
	RankSep float64
	NodeSep float64
}

// Arrange recomputes node positions with Graphviz's layered "dot" layout.
// Declared widths and heights are respected (absent means zero) and the
// center anchored output is converted to top-left anchors where dimensions
// are known. Edges that reference unknown nodes are left out of the layout
// but returned unchanged. Positions are always overwritten; the result only
// depends on the node and edge lists and the options.
func Arrange(ctx context.Context, nodes []Node, edges []Edge, opts ArrangeOptions) ([]Node, []Edge, error) {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	outEdges := make([]Edge, len(edges))
	copy(outEdges, edges)
	if len(nodes) == 0 {
		return out, outEdges, nil
	}

	dir, err := ParseDirection(string(opts.Direction))
	if err != nil {
		return nil, nil, err
	}
	opts.Direction = dir

	plain, err := renderPlain(ctx, toDOT(nodes, edges, opts))
	if err != nil {
		return nil, nil, err
	}
	centers, graphHeight, err := parsePlain(plain)
	if err != nil {
		return nil, nil, err
	}

	if err := placeNodes(out, centers, graphHeight); err != nil {
		return nil, nil, err
	}
	return out, outEdges, nil
}

// placeNodes converts Graphviz centers (inches, origin bottom-left) to
// top-left positions in points with y growing downwards. A side with no
// declared size is not shifted, so such nodes keep their center.
func placeNodes(nodes []Node, centers map[int]Position, graphHeight float64) error {
	for i := range nodes {
		c, ok := centers[i]
		if !ok {
			return errors.New(errors.ErrCodeInternal, "graphviz did not place node %q", nodes[i].ID)
		}
		x := c.X * pointsPerInch
		y := (graphHeight - c.Y) * pointsPerInch
		if nodes[i].Width > 0 {
			x -= nodes[i].Width / 2
		}
		if nodes[i].Height > 0 {
			y -= nodes[i].Height / 2
		}
		nodes[i].Position = Position{X: x, Y: y}
	}
	return nil
}

// toDOT builds the Graphviz input. Nodes are named by index so arbitrary
// ids never need quoting; an id that appears twice resolves to its first
// occurrence when edges are attached.
func toDOT(nodes []Node, edges []Edge, opts ArrangeOptions) string {
	ranksep, nodesep := opts.RankSep, opts.NodeSep
	if ranksep <= 0 {
		ranksep = 0.5
	}
	if nodesep <= 0 {
		nodesep = 0.3
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.Direction)
	fmt.Fprintf(&buf, "  ranksep=%s;\n", fmtFloat(ranksep))
	fmt.Fprintf(&buf, "  nodesep=%s;\n", fmtFloat(nodesep))
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n")
	buf.WriteString("\n")

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
		fmt.Fprintf(&buf, "  n%d [width=%s, height=%s];\n", i,
			fmtFloat(inches(n.Width)), fmtFloat(inches(n.Height)))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		src, ok := index[e.Source]
		if !ok {
			continue
		}
		dst, ok := index[e.Target]
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", src, dst)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func inches(points float64) float64 {
	return max(points/pointsPerInch, 0.01)
}

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func renderPlain(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.Format("plain"), &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// parsePlain reads node centers (in inches, origin bottom-left) from
// Graphviz "plain" output, keyed by node index.
func parsePlain(data []byte) (map[int]Position, float64, error) {
	centers := make(map[int]Position)
	var height float64

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "graph":
			if len(fields) < 4 {
				return nil, 0, fmt.Errorf("malformed graph line %q", sc.Text())
			}
			h, err := strconv.ParseFloat(fields[3], 64)
			if err != nil {
				return nil, 0, fmt.Errorf("parse graph height: %w", err)
			}
			height = h
		case "node":
			if len(fields) < 4 {
				return nil, 0, fmt.Errorf("malformed node line %q", sc.Text())
			}
			idx, err := strconv.Atoi(strings.TrimPrefix(strings.Trim(fields[1], `"`), "n"))
			if err != nil {
				return nil, 0, fmt.Errorf("unexpected node name %q", fields[1])
			}
			x, errX := strconv.ParseFloat(fields[2], 64)
			y, errY := strconv.ParseFloat(fields[3], 64)
			if errX != nil || errY != nil {
				return nil, 0, fmt.Errorf("malformed node position %q", sc.Text())
			}
			centers[idx] = Position{X: x, Y: y}
		case "stop":
			return centers, height, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("read plain output: %w", err)
	}
	return centers, height, nil
}
