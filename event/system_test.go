package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndQuery(t *testing.T) {
	sys := New()

	id1 := sys.Create(TypeRunStart, "planner", "r1", "t1", nil, nil)
	id2 := sys.Create(TypeAgentStart, "planner", "r1", "t1", nil, nil)
	sys.Create(TypeRunStart, "worker", "r2", "t2", nil, nil)

	require.NotEmpty(t, id1)
	require.NotEqual(t, id1, id2)

	all := sys.Events(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, id1, all[0].ID, "creation order preserved")

	byRun := sys.Events(Filter{RunID: "r1"})
	require.Len(t, byRun, 2)

	byType := sys.Events(Filter{RunID: "r1", Type: TypeAgentStart})
	require.Len(t, byType, 1)
	assert.Equal(t, id2, byType[0].ID)
}

func TestScopeParenting(t *testing.T) {
	sys := New()

	root := sys.Create(TypeRunStart, "planner", "r1", "t1", nil, nil)
	sys.StartScope(root)

	child := sys.Create(TypeAgentStart, "planner", "r1", "t1", nil, nil)
	sys.StartScope(child)

	grandchild := sys.Create(TypeToolStart, "planner", "r1", "t1", nil, nil)

	sys.EndScope("r1")
	sibling := sys.Create(TypeAgentComplete, "planner", "r1", "t1", nil, nil)
	sys.EndScope("r1")

	after := sys.Create(TypeRunComplete, "planner", "r1", "t1", nil, nil)

	ev, ok := sys.Event(grandchild)
	require.True(t, ok)
	assert.Equal(t, child, ev.ParentEventID)

	ev, ok = sys.Event(sibling)
	require.True(t, ok)
	assert.Equal(t, root, ev.ParentEventID)

	ev, ok = sys.Event(after)
	require.True(t, ok)
	assert.Empty(t, ev.ParentEventID, "no scope open after both pops")
}

func TestScopeIsolationBetweenRuns(t *testing.T) {
	sys := New()

	rootA := sys.Create(TypeRunStart, "a", "rA", "tA", nil, nil)
	sys.StartScope(rootA)

	// An event for a different run must not be parented under rA's scope.
	other := sys.Create(TypeRunStart, "b", "rB", "tB", nil, nil)
	ev, ok := sys.Event(other)
	require.True(t, ok)
	assert.Empty(t, ev.ParentEventID)

	inScope := sys.Create(TypeAgentStart, "a", "rA", "tA", nil, nil)
	ev, ok = sys.Event(inScope)
	require.True(t, ok)
	assert.Equal(t, rootA, ev.ParentEventID)
}

func TestEndScopeReleasesRunEntry(t *testing.T) {
	sys := New()

	root := sys.Create(TypeRunStart, "a", "r1", "t1", nil, nil)
	sys.StartScope(root)
	child := sys.Create(TypeAgentStart, "a", "r1", "t1", nil, nil)
	sys.StartScope(child)

	sys.EndScope("r1")
	_, held := sys.scopes["r1"]
	assert.True(t, held, "inner pop keeps the run's stack")

	sys.EndScope("r1")
	_, held = sys.scopes["r1"]
	assert.False(t, held, "closing the last scope drops the run's entry")
}

func TestEndScopeOnEmptyStackIsNoOp(t *testing.T) {
	sys := New()
	sys.EndScope("unknown")

	id := sys.Create(TypeRunStart, "a", "r1", "t1", nil, nil)
	ev, ok := sys.Event(id)
	require.True(t, ok)
	assert.Empty(t, ev.ParentEventID)
}

func TestUnknownTypeRecordedAsError(t *testing.T) {
	sys := New()

	id := sys.Create(Type("bogus"), "a", "r1", "t1", map[string]any{"k": "v"}, nil)
	ev, ok := sys.Event(id)
	require.True(t, ok)
	assert.Equal(t, TypeError, ev.Type)
	assert.Equal(t, "bogus", ev.Details["original_type"])
	assert.Equal(t, "v", ev.Details["k"], "caller details preserved")
}

func TestChainRootFirst(t *testing.T) {
	sys := New()

	root := sys.Create(TypeRunStart, "a", "r1", "t1", nil, nil)
	sys.StartScope(root)
	mid := sys.Create(TypeAgentStart, "a", "r1", "t1", nil, nil)
	sys.StartScope(mid)
	leaf := sys.Create(TypeToolStart, "a", "r1", "t1", nil, nil)

	chain := sys.Chain(leaf)
	require.Len(t, chain, 3)
	assert.Equal(t, root, chain[0].ID)
	assert.Equal(t, mid, chain[1].ID)
	assert.Equal(t, leaf, chain[2].ID)

	assert.Empty(t, sys.Chain("missing"))
}

func TestReadsDoNotMutate(t *testing.T) {
	sys := New()
	id := sys.Create(TypeRunStart, "a", "r1", "t1", map[string]any{"k": "v"}, nil)

	first := sys.Events(Filter{})
	require.Len(t, first, 1)
	first[0].Details["k"] = "tampered"
	first[0].Type = TypeError

	second := sys.Events(Filter{})
	require.Len(t, second, 1)
	assert.Equal(t, TypeRunStart, second[0].Type)
	assert.Equal(t, "v", second[0].Details["k"])

	ev, ok := sys.Event(id)
	require.True(t, ok)
	assert.Equal(t, "v", ev.Details["k"])
}

func TestFormat(t *testing.T) {
	sys := New()
	id := sys.Create(TypeToolStart, "planner", "r1", "t1", map[string]any{"tool": "calculator"}, nil)

	ev, ok := sys.Event(id)
	require.True(t, ok)

	line := Format(ev)
	assert.Contains(t, line, "TOOL_START")
	assert.Contains(t, line, "Agent: planner")
	assert.Contains(t, line, "tool=calculator")
}

func TestFormatChainIndentation(t *testing.T) {
	sys := New()
	root := sys.Create(TypeRunStart, "a", "r1", "t1", nil, nil)
	sys.StartScope(root)
	leaf := sys.Create(TypeAgentStart, "a", "r1", "t1", nil, nil)

	out := sys.FormatChain(leaf)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.False(t, strings.HasPrefix(lines[0], " "))
	assert.True(t, strings.HasPrefix(lines[1], "  "))
}

func TestClear(t *testing.T) {
	sys := New()
	root := sys.Create(TypeRunStart, "a", "r1", "t1", nil, nil)
	sys.StartScope(root)

	sys.Clear()
	assert.Empty(t, sys.Events(Filter{}))

	id := sys.Create(TypeRunStart, "a", "r1", "t1", nil, nil)
	ev, ok := sys.Event(id)
	require.True(t, ok)
	assert.Empty(t, ev.ParentEventID, "scope state discarded with the log")
}
