package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/assetbridge/pkg/math"
	"github.com/Faultbox/assetbridge/pkg/native"
)

func TestNodeAddChild(t *testing.T) {
	root := NewNode("root")
	arm := NewNode("arm")
	hand := NewNode("hand")
	require.NoError(t, root.AddChild(arm))
	require.NoError(t, arm.AddChild(hand))

	assert.Same(t, root, arm.Parent())
	assert.Equal(t, 2, hand.Depth())
	assert.Error(t, root.AddChild(nil))
	assert.ErrorIs(t, root.AddChild(hand), native.ErrInvalidScene, "second parent")
	assert.ErrorIs(t, hand.AddChild(root), native.ErrInvalidScene, "cycle")
	assert.ErrorIs(t, hand.AddChild(hand), native.ErrInvalidScene, "self")

	assert.True(t, root.RemoveChild(arm))
	assert.False(t, root.RemoveChild(arm))
	assert.Nil(t, arm.Parent())
	assert.False(t, root.HasChildren())
	require.NoError(t, hand.AddChild(NewNode("finger")))
}

func TestNodeFindAndWalk(t *testing.T) {
	root := NewNode("root")
	a, b := NewNode("a"), NewNode("b")
	a1 := NewNode("target")
	b1 := NewNode("target")
	require.NoError(t, root.AddChild(a))
	require.NoError(t, root.AddChild(b))
	require.NoError(t, a.AddChild(a1))
	require.NoError(t, b.AddChild(b1))

	assert.Same(t, a1, root.FindNode("target"), "pre-order finds the first subtree")
	assert.Nil(t, root.FindNode("missing"))

	var order []string
	root.Walk(func(n *Node, depth int) bool {
		order = append(order, n.Name)
		return n != a
	})
	assert.Equal(t, []string{"root", "a", "b", "target"}, order, "returning false prunes")
}

func TestNodeGlobalTransform(t *testing.T) {
	root := NewNode("root")
	root.Transform = math.Translate(1, 0, 0)
	child := NewNode("child")
	child.Transform = math.Translate(0, 2, 0)
	require.NoError(t, root.AddChild(child))

	p := child.GlobalTransform().TransformPoint(math.Vec3{})
	assert.InDelta(t, 1, p.X, 1e-6)
	assert.InDelta(t, 2, p.Y, 1e-6)
}

func TestNodeNegativeMeshIndex(t *testing.T) {
	h, tc := newTestTranscoder(t)
	n := NewNode("bad")
	n.MeshIndices = []int{0, -1}

	_, err := ToNative(tc, n)
	assert.ErrorIs(t, err, native.ErrInvalidScene)
	requireNoLeaks(t, h)
}
