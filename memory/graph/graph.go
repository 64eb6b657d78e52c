// Package graph derives a node/edge view of a memory model for
// rendering and for the explain layer's property/closure inspection.
package graph

import (
	"fmt"
	"sort"

	"github.com/chronovm/chronovm/memory"
	"github.com/chronovm/chronovm/vm"
)

// NodeKind tags a graph node.
type NodeKind string

const (
	NodeEnvironment NodeKind = "environment"
	NodePrimitive   NodeKind = "primitive"
	NodeObject      NodeKind = "object"
	NodeList        NodeKind = "list"
	NodeFunction    NodeKind = "function"
)

// Node is one graph vertex: an environment or a heap entry.
type Node struct {
	ID    string
	Kind  NodeKind
	Label string
}

// Edge connects two node IDs with a label describing the relationship:
// the binding identifier, the property key, the list index, or
// "closure".
type Edge struct {
	From  string
	To    string
	Label string
}

// Graph is the sorted node/edge view of a Model. Keyed insertion makes
// duplicate nodes and edges structurally impossible.
type Graph struct {
	Nodes []Node
	Edges []Edge

	// GlobalEnv is the global environment's node id, carried through so
	// the explain layer can tell a closure over a local scope apart from
	// a top-level function definition capturing the (never destroyed)
	// global environment.
	GlobalEnv string

	nodeByID map[string]Node
	// outEdges indexes edges by (From) for the explain layer's property
	// diffing (object -> property edges).
	outEdges map[string][]Edge
}

// NodeByID looks up a node by its id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	n, ok := g.nodeByID[id]
	return n, ok
}

// OutEdges returns the edges leaving id, sorted by (to, label).
func (g *Graph) OutEdges(id string) []Edge {
	return g.outEdges[id]
}

// BuildGraph derives a Graph from a memory.Model.
func BuildGraph(m *memory.Model) *Graph {
	g := &Graph{nodeByID: map[string]Node{}, outEdges: map[string][]Edge{}, GlobalEnv: m.GlobalEnv.String()}

	for _, env := range m.Envs {
		id := env.Address.String()
		g.addNode(Node{ID: id, Kind: NodeEnvironment, Label: envLabel(env)})
		for _, b := range env.Bindings {
			g.addEdge(Edge{From: id, To: b.Value.String(), Label: b.Name})
		}
	}

	for _, h := range m.Heap {
		id := h.Address.String()
		g.addNode(Node{ID: id, Kind: heapNodeKind(h.Kind), Label: heapLabel(h)})
		switch h.Kind {
		case vm.KindObject:
			for _, p := range h.Properties {
				g.addEdge(Edge{From: id, To: p.Value.String(), Label: p.Key})
			}
		case vm.KindList:
			for i, elem := range h.Elements {
				g.addEdge(Edge{From: id, To: elem.String(), Label: fmt.Sprintf("[%d]", i)})
			}
		case vm.KindFunction:
			g.addEdge(Edge{From: id, To: h.Captured.String(), Label: "closure"})
		}
	}

	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		if g.Edges[i].To != g.Edges[j].To {
			return g.Edges[i].To < g.Edges[j].To
		}
		return g.Edges[i].Label < g.Edges[j].Label
	})
	for id := range g.outEdges {
		edges := g.outEdges[id]
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].To != edges[j].To {
				return edges[i].To < edges[j].To
			}
			return edges[i].Label < edges[j].Label
		})
		g.outEdges[id] = edges
	}

	return g
}

func (g *Graph) addNode(n Node) {
	g.Nodes = append(g.Nodes, n)
	g.nodeByID[n.ID] = n
}

func (g *Graph) addEdge(e Edge) {
	g.Edges = append(g.Edges, e)
	g.outEdges[e.From] = append(g.outEdges[e.From], e)
}

func heapNodeKind(k vm.HeapKind) NodeKind {
	switch k {
	case vm.KindPrimitive:
		return NodePrimitive
	case vm.KindObject:
		return NodeObject
	case vm.KindList:
		return NodeList
	case vm.KindFunction:
		return NodeFunction
	default:
		return NodePrimitive
	}
}

func heapLabel(h memory.HeapNode) string {
	switch h.Kind {
	case vm.KindPrimitive:
		return (&vm.HeapObject{Kind: vm.KindPrimitive, Prim: h.Prim, BoolVal: h.BoolVal, IntVal: h.IntVal, FloatVal: h.FloatVal, StringVal: h.StringVal}).Repr()
	case vm.KindObject:
		return "{object}"
	case vm.KindList:
		return "[list]"
	case vm.KindFunction:
		return "<function>"
	default:
		return "unknown"
	}
}

func envLabel(e memory.EnvNode) string {
	return e.Address.String()
}
