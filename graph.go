package campaign

import (
	"fmt"
	"sort"
)

// GraphOptions configure a workflow graph.
type GraphOptions struct {
	Name string

	// Nodes are the units of work, in any order.
	Nodes []Node

	// Entry is the node executed first for a new session.
	Entry NodeName

	// Routes maps each node to the router consulted after it completes.
	// Every node must have a route.
	Routes map[NodeName]Router

	// InterruptBefore lists nodes the engine pauses in front of, returning
	// control to the caller until resume.
	InterruptBefore []NodeName
}

// Graph defines a repeatable workflow as nodes joined by routing decisions.
type Graph struct {
	name       string
	nodes      map[NodeName]Node
	writes     map[NodeName]fieldSet
	routes     map[NodeName]Router
	entry      NodeName
	interrupts map[NodeName]bool
	nodeNames  []NodeName
}

// NewGraph returns a validated Graph.
func NewGraph(opts GraphOptions) (*Graph, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("graph name required")
	}
	if len(opts.Nodes) == 0 {
		return nil, fmt.Errorf("nodes required")
	}

	nodes := make(map[NodeName]Node, len(opts.Nodes))
	writes := make(map[NodeName]fieldSet, len(opts.Nodes))
	for _, node := range opts.Nodes {
		name := node.Name()
		if name == "" {
			return nil, fmt.Errorf("node name required")
		}
		if _, exists := nodes[name]; exists {
			return nil, fmt.Errorf("duplicate node %q", name)
		}
		if len(node.Writes()) == 0 {
			return nil, fmt.Errorf("node %q declares no writable fields", name)
		}
		nodes[name] = node
		writes[name] = newFieldSet(node.Writes()...)
	}

	if opts.Entry == "" {
		return nil, fmt.Errorf("entry node required")
	}
	if _, ok := nodes[opts.Entry]; !ok {
		return nil, fmt.Errorf("entry node %q not found", opts.Entry)
	}

	for name := range nodes {
		if _, ok := opts.Routes[name]; !ok {
			return nil, fmt.Errorf("node %q has no route", name)
		}
	}
	for name := range opts.Routes {
		if _, ok := nodes[name]; !ok {
			return nil, fmt.Errorf("route defined for unknown node %q", name)
		}
	}

	interrupts := make(map[NodeName]bool, len(opts.InterruptBefore))
	for _, name := range opts.InterruptBefore {
		if _, ok := nodes[name]; !ok {
			return nil, fmt.Errorf("interrupt point %q not found", name)
		}
		interrupts[name] = true
	}

	nodeNames := make([]NodeName, 0, len(nodes))
	for name := range nodes {
		nodeNames = append(nodeNames, name)
	}
	sort.Slice(nodeNames, func(i, j int) bool { return nodeNames[i] < nodeNames[j] })

	return &Graph{
		name:       opts.Name,
		nodes:      nodes,
		writes:     writes,
		routes:     opts.Routes,
		entry:      opts.Entry,
		interrupts: interrupts,
		nodeNames:  nodeNames,
	}, nil
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// Entry returns the entry node name.
func (g *Graph) Entry() NodeName {
	return g.entry
}

// Node returns a node by name.
func (g *Graph) Node(name NodeName) (Node, bool) {
	node, ok := g.nodes[name]
	return node, ok
}

// Route returns the router owned by the named node.
func (g *Graph) Route(name NodeName) (Router, bool) {
	route, ok := g.routes[name]
	return route, ok
}

// allowedWrites returns the writable-field set declared by the named node.
func (g *Graph) allowedWrites(name NodeName) fieldSet {
	return g.writes[name]
}

// InterruptsBefore reports whether the engine must pause before entering the
// named node.
func (g *Graph) InterruptsBefore(name NodeName) bool {
	return g.interrupts[name]
}

// NodeNames returns the sorted names of all nodes.
func (g *Graph) NodeNames() []NodeName {
	return append([]NodeName(nil), g.nodeNames...)
}
