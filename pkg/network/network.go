// Package network renders a company neighborhood into the node/edge payload
// the graph visualization consumes.
package network

import (
	"github.com/gridline/fraudgraph/backend/pkg/common"
)

const (
	centerSize  = 30
	minNodeSize = 12

	centerColor     = "#3b82f6"
	highRiskColor   = "#ef4444"
	mediumRiskColor = "#f59e0b"
	lowRiskColor    = "#10b981"
)

// Node is one rendered graph node.
type Node struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	RiskScore float64 `json:"riskscore"`
	Type      string  `json:"type"`
	Size      float64 `json:"size"`
	Color     string  `json:"color"`
}

// Edge references its endpoints by node index.
type Edge struct {
	From  int     `json:"from"`
	To    int     `json:"to"`
	Label string  `json:"label"`
	Width float64 `json:"width"`
}

// Graph is the full visualization payload. The center company is always the
// first node.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build renders a neighborhood. Node size and color encode risk; edge width
// encodes relationship weight.
func Build(n *common.Neighborhood) *Graph {
	g := &Graph{
		Nodes: []Node{{
			ID:        n.Center.ID,
			Label:     n.Center.Name,
			RiskScore: n.Center.RiskScore,
			Type:      "Company",
			Size:      centerSize,
			Color:     centerColor,
		}},
		Edges: []Edge{},
	}

	index := map[string]int{n.Center.ID: 0}
	for _, node := range n.Nodes {
		index[node.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{
			ID:        node.ID,
			Label:     node.ID,
			RiskScore: node.RiskScore,
			Type:      node.Type,
			Size:      nodeSize(node.RiskScore),
			Color:     riskColor(node.RiskScore),
		})
	}

	for _, e := range n.Edges {
		from, okFrom := index[e.From]
		to, okTo := index[e.To]
		if !okFrom || !okTo {
			continue
		}
		g.Edges = append(g.Edges, Edge{
			From:  from,
			To:    to,
			Label: e.Type,
			Width: edgeWidth(e.Weight),
		})
	}
	return g
}

// Riskier nodes render smaller, shrinking from 28 towards the floor of 12.
func nodeSize(risk float64) float64 {
	size := 28 - 16*risk
	if size < minNodeSize {
		size = minNodeSize
	}
	return size
}

func riskColor(risk float64) string {
	switch {
	case risk >= 0.7:
		return highRiskColor
	case risk >= 0.4:
		return mediumRiskColor
	default:
		return lowRiskColor
	}
}

func edgeWidth(weight float64) float64 {
	width := weight / 10
	if width < 1 {
		width = 1
	}
	return width
}
