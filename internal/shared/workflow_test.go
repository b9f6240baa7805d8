package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowValidate(t *testing.T) {
	w := &Workflow{}
	w.AddNode(NewNode("reader"))
	w.AddNode(NewNode("processor"))
	w.Edges = append(w.Edges, Edge{From: "reader", To: "processor"})
	assert.Empty(t, w.Validate())

	w.AddNode(NewNode("reader"))
	w.Edges = append(w.Edges, Edge{From: "processor", To: "writer"})
	problems := w.Validate()
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0], "duplicate node name")
	assert.Contains(t, problems[1], "unknown node")
}

func TestWorkflowValidateEmptyName(t *testing.T) {
	w := &Workflow{Nodes: []Node{{Name: ""}}}
	problems := w.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "empty name")
}

func TestWorkflowNodeLookup(t *testing.T) {
	w := &Workflow{}
	w.AddNode(NewNode("reader"))
	w.AddNode(NewNode("processor"))

	n, ok := w.Node("processor")
	require.True(t, ok)
	assert.Equal(t, "processor", n.Name)

	_, ok = w.Node("writer")
	assert.False(t, ok)

	assert.Equal(t, []string{"reader", "processor"}, w.NodeNames())
}

func TestWorkflowCloneIsDeep(t *testing.T) {
	w := &Workflow{}
	n := NewNode("reader")
	n.Labels["zone"] = "a"
	w.AddNode(n)
	w.Edges = append(w.Edges, Edge{From: "reader", To: "reader"})

	c := w.Clone()
	c.Nodes[0].Labels["zone"] = "b"
	c.Nodes = append(c.Nodes, NewNode("extra"))
	c.Edges[0].To = "extra"

	assert.Equal(t, "a", w.Nodes[0].Labels["zone"])
	assert.Len(t, w.Nodes, 1)
	assert.Equal(t, "reader", w.Edges[0].To)

	// Identity survives the copy.
	assert.Equal(t, w.Nodes[0].ID, c.Nodes[0].ID)
}
