package shared

import (
	"github.com/google/uuid"
)

// Node is one deployable unit of the workflow: a process realizing a set of
// services.
type Node struct {
	// ID is assigned at creation and survives redeployments.
	ID string
	// Name is unique within a workflow.
	Name string
	// Labels carry free-form annotations; AdjustTopology passes may add them.
	Labels map[string]string
	// Services active on this node.
	Services []*ServiceSpec
	// Injected marks auxiliary nodes added by InjectTopology. The controller
	// rejects adjust passes that remove them.
	Injected bool
}

// NewNode creates a named node with a fresh identity.
func NewNode(name string, services ...*ServiceSpec) Node {
	return Node{
		ID:       uuid.NewString(),
		Name:     name,
		Labels:   make(map[string]string),
		Services: services,
	}
}

// Edge is a directed channel between two nodes, by name. Edge semantics are
// owned by the external transport; this core never mutates them.
type Edge struct {
	From string
	To   string
}

// Workflow is the declarative topology consumed by the controller: the graph
// of processing nodes and their connectivity.
type Workflow struct {
	Nodes []Node
	Edges []Edge
}

// AddNode appends a node, preserving declaration order.
func (w *Workflow) AddNode(n Node) {
	w.Nodes = append(w.Nodes, n)
}

// Node returns the node with the given name.
func (w *Workflow) Node(name string) (*Node, bool) {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i], true
		}
	}
	return nil, false
}

// NodeNames returns the node names in declaration order.
func (w *Workflow) NodeNames() []string {
	names := make([]string, len(w.Nodes))
	for i := range w.Nodes {
		names[i] = w.Nodes[i].Name
	}
	return names
}

// Validate reports structural problems: duplicate node names and edges
// referencing unknown nodes.
func (w *Workflow) Validate() []string {
	var problems []string
	seen := make(map[string]bool, len(w.Nodes))
	for i := range w.Nodes {
		name := w.Nodes[i].Name
		if name == "" {
			problems = append(problems, "node with empty name")
			continue
		}
		if seen[name] {
			problems = append(problems, "duplicate node name '"+name+"'")
		}
		seen[name] = true
	}
	for _, e := range w.Edges {
		if !seen[e.From] {
			problems = append(problems, "edge from unknown node '"+e.From+"'")
		}
		if !seen[e.To] {
			problems = append(problems, "edge to unknown node '"+e.To+"'")
		}
	}
	return problems
}

// Clone deep-copies the graph so an adjust pass can be validated before it is
// accepted.
func (w *Workflow) Clone() *Workflow {
	out := &Workflow{
		Nodes: make([]Node, len(w.Nodes)),
		Edges: append([]Edge(nil), w.Edges...),
	}
	for i := range w.Nodes {
		n := w.Nodes[i]
		labels := make(map[string]string, len(n.Labels))
		for k, v := range n.Labels {
			labels[k] = v
		}
		n.Labels = labels
		n.Services = append([]*ServiceSpec(nil), n.Services...)
		out.Nodes[i] = n
	}
	return out
}
