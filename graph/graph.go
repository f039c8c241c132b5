package graph

import (
	"encoding/json"
	"fmt"
)

// Node is a single addressable unit of a workflow: a bound Component plus
// the static configuration and input mapping the scheduler resolves before
// invoking it.
type Node struct {
	// ID uniquely identifies this node within its graph.
	ID string

	// ComponentType is the registry key this node's Component was resolved
	// from (e.g. "llm", "http", "branch"). Kept alongside the bound
	// Component for diagnostics and re-serialization.
	ComponentType string

	// Component is the bound behavior this node invokes.
	Component Component

	// Config is static, unresolved configuration handed to Component.Invoke
	// verbatim (model name, URL template, branch predicate source, ...).
	Config map[string]any

	// Inputs is the templated input mapping resolved against the run's
	// node-output cache and variables before each invocation.
	Inputs map[string]any

	// Policy controls this node's timeout and retry behavior. A nil Policy
	// means "use the scheduler's defaults."
	Policy *ComponentPolicy
}

// Edge connects two nodes. SourceHandle, when non-empty, restricts this
// edge to fire only when the source node's output selected that handle via
// ActiveHandleKey — the mechanism conditional/branching components use to
// choose among their out-edges.
type Edge struct {
	From         string
	To           string
	SourceHandle string
}

// Graph is an immutable-after-Validate adjacency structure: a node set, an
// edge list, and a designated entry point.
type Graph struct {
	ID       string
	nodes    map[string]*Node
	edges    []Edge
	outEdges map[string][]Edge
	entry    string
	exit     string
}

// NewGraph returns an empty, named graph ready for AddNode/AddEdge calls.
func NewGraph(id string) *Graph {
	return &Graph{
		ID:       id,
		nodes:    make(map[string]*Node),
		outEdges: make(map[string][]Edge),
	}
}

// AddNode registers n. Re-adding a node with the same ID replaces it.
func (g *Graph) AddNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("graph: node id must not be empty")
	}
	g.nodes[n.ID] = n
	return nil
}

// AddEdge registers an edge between two already-added nodes.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("%w: edge source %q", ErrUnknownNode, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("%w: edge target %q", ErrUnknownNode, e.To)
	}
	g.edges = append(g.edges, e)
	g.outEdges[e.From] = append(g.outEdges[e.From], e)
	return nil
}

// SetEntryPoint designates the node the scheduler enqueues first.
func (g *Graph) SetEntryPoint(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: entry point %q", ErrUnknownNode, id)
	}
	g.entry = id
	return nil
}

// EntryPoint returns the designated entry node id.
func (g *Graph) EntryPoint() string { return g.entry }

// SetExitPoint designates the node whose output is the run's final output,
// overriding the default convention of using the last-executed node's
// output. Unlike the entry point this is optional.
func (g *Graph) SetExitPoint(id string) error {
	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: exit point %q", ErrUnknownNode, id)
	}
	g.exit = id
	return nil
}

// ExitPoint returns the designated exit node id, or "" if none was set.
func (g *Graph) ExitPoint() string { return g.exit }

// Node returns the node registered under id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// OutgoingEdges returns every edge leaving id, in the order they were added.
func (g *Graph) OutgoingEdges(id string) []Edge {
	return g.outEdges[id]
}

// Validate checks structural invariants: an entry point is set, every edge
// references nodes that exist, and every node is reachable from the entry
// point.
func (g *Graph) Validate() error {
	if g.entry == "" {
		return ErrNoEntryPoint
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return fmt.Errorf("%w: entry point %q", ErrUnknownNode, g.entry)
	}

	reachable := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, e := range g.outEdges[id] {
			if !reachable[e.To] {
				reachable[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	for id := range g.nodes {
		if !reachable[id] {
			return fmt.Errorf("graph: node %q is unreachable from entry point %q", id, g.entry)
		}
	}
	return nil
}

// NodeConfig is the wire shape of a node within a serialized
// WorkflowDefinition.
type NodeConfig struct {
	ID            string          `json:"id"`
	ComponentType string          `json:"component_type"`
	Config        map[string]any  `json:"config,omitempty"`
	Inputs        map[string]any  `json:"inputs,omitempty"`
	Policy        *PolicyConfig   `json:"policy,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// PolicyConfig is the wire shape of a node's ComponentPolicy.
type PolicyConfig struct {
	TimeoutMS   int64             `json:"timeout_ms,omitempty"`
	MaxAttempts int               `json:"max_attempts,omitempty"`
	BaseDelayMS int64             `json:"base_delay_ms,omitempty"`
	MaxDelayMS  int64             `json:"max_delay_ms,omitempty"`
	SideEffect  *SideEffectPolicy `json:"side_effect,omitempty"`
}

// EdgeConfig is the wire shape of an edge within a serialized
// WorkflowDefinition.
type EdgeConfig struct {
	From         string `json:"from"`
	To           string `json:"to"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// WorkflowDefinition is the JSON document an external builder (UI, file, or
// API call) submits to describe a graph: its nodes, edges, and entry point.
type WorkflowDefinition struct {
	ID          string       `json:"id"`
	EntryPoint  string       `json:"entry_point"`
	ExitPoint   string       `json:"exit_point,omitempty"`
	Nodes       []NodeConfig `json:"nodes"`
	Edges       []EdgeConfig `json:"edges"`
	Description string       `json:"description,omitempty"`
}

// ComponentRegistry resolves a node's declared ComponentType to a bound
// Component implementation. No component registers itself: hosts build the
// registry, for example a MapRegistry, or tool.Registry for a set of tools
// keyed by name.
type ComponentRegistry interface {
	Resolve(componentType string) (Component, bool)
}

// MapRegistry is the simplest ComponentRegistry: a static name-to-Component
// table.
type MapRegistry map[string]Component

// Resolve implements ComponentRegistry.
func (m MapRegistry) Resolve(componentType string) (Component, bool) {
	c, ok := m[componentType]
	return c, ok
}

// Load builds a Graph from a WorkflowDefinition, resolving each node's
// component against registry and validating the result.
func Load(def WorkflowDefinition, registry ComponentRegistry) (*Graph, error) {
	g := NewGraph(def.ID)
	for _, nc := range def.Nodes {
		comp, ok := registry.Resolve(nc.ComponentType)
		if !ok {
			return nil, fmt.Errorf("graph: no component registered for type %q (node %q)", nc.ComponentType, nc.ID)
		}
		n := &Node{
			ID:            nc.ID,
			ComponentType: nc.ComponentType,
			Component:     comp,
			Config:        nc.Config,
			Inputs:        nc.Inputs,
			Policy:        policyFromConfig(nc.Policy),
		}
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, ec := range def.Edges {
		if err := g.AddEdge(Edge{From: ec.From, To: ec.To, SourceHandle: ec.SourceHandle}); err != nil {
			return nil, err
		}
	}
	if def.EntryPoint != "" {
		if err := g.SetEntryPoint(def.EntryPoint); err != nil {
			return nil, err
		}
	}
	if def.ExitPoint != "" {
		if err := g.SetExitPoint(def.ExitPoint); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
